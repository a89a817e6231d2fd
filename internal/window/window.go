// Copyright (c) 2025 Erik Kassubek
//
// File: window.go
// Brief: Per-routine trace window and the contract violation detector
//
// Author: Erik Kassubek
// Created: 2025-07-28
//
// License: BSD-3-Clause

package window

import (
	"fmt"
	"sync"

	"anacore/internal/automaton"
	"anacore/internal/clock"
	"anacore/internal/contract"
	"anacore/internal/report"
)

// Instances holds the target- or spoiler-indexed half of one cell of the
// window's sparse matrix: the running instance currently being matched by
// this routine, and the last instance this routine completed. The last
// instance is read by every other routine's window while checking for a
// violation, so access to it is guarded by mu; the running instance is only
// ever touched by the routine that owns the enclosing Window and needs no
// lock.
type Instances struct {
	mu sync.RWMutex

	regex       string
	conflicting []int

	last struct {
		start *clock.VectorClock
		end   *clock.VectorClock
	}

	running struct {
		start   *clock.VectorClock
		runner  *automaton.Runner
		started bool
	}
}

func newInstances(fa *automaton.Automaton, regex string) *Instances {
	inst := &Instances{regex: regex}
	inst.running.runner = automaton.NewRunner(fa)
	return inst
}

// Registry is the set of every routine's Window, so that each Window can
// check the instances completed by every other routine while looking for a
// violation.
type Registry struct {
	mu      sync.RWMutex
	windows map[int]*Window
}

// NewRegistry creates an empty window registry.
func NewRegistry() *Registry {
	return &Registry{windows: make(map[int]*Window)}
}

func (this *Registry) register(w *Window) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.windows[w.routine] = w
}

// others returns a snapshot of every registered window except self.
func (this *Registry) others(self *Window) []*Window {
	this.mu.RLock()
	defer this.mu.RUnlock()

	out := make([]*Window, 0, len(this.windows))
	for routine, w := range this.windows {
		if routine == self.routine {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Window is one routine's trace window: a sparse matrix of target instances
// (rows) and spoiler instances (columns), monitored against a contract.
type Window struct {
	routine  int
	cvc      *clock.VectorClock
	registry *Registry

	targets  []*Instances
	spoilers []*Instances
}

// NewWindow creates a window for routine, owned by the caller's current
// vector clock cvc, and registers it with registry so other routines'
// windows can see the instances it completes.
//
// Parameter:
//   - routine int: the routine owning this window
//   - cvc *clock.VectorClock: the routine's live vector clock; the window
//     reads it, it never copies it except to snapshot a start or end time
//   - registry *Registry: the shared registry of every routine's window
func NewWindow(routine int, cvc *clock.VectorClock, registry *Registry) *Window {
	w := &Window{routine: routine, cvc: cvc, registry: registry}
	registry.register(w)
	return w
}

// Routine returns the id of the routine owning this window.
func (this *Window) Routine() int {
	return this.routine
}

// Monitor populates the window's sparse matrix from every target and
// spoiler declared in c, one Instances cell per target and per spoiler,
// each linked to the other through its conflicting list.
//
// Returns:
//   - error: non-nil if c assigns the same type twice, which would mean a
//     malformed Contract
func (this *Window) Monitor(c *contract.Contract) error {
	for _, target := range c.Targets {
		if err := this.growTargets(target.Type); err != nil {
			return err
		}
		if this.targets[target.Type] != nil {
			return fmt.Errorf("window: duplicate target type %d", target.Type)
		}
		this.targets[target.Type] = newInstances(target.FA, target.Regex)

		for _, spoiler := range target.Spoilers {
			if err := this.growSpoilers(spoiler.Type); err != nil {
				return err
			}
			if this.spoilers[spoiler.Type] != nil {
				return fmt.Errorf("window: duplicate spoiler type %d", spoiler.Type)
			}
			this.spoilers[spoiler.Type] = newInstances(spoiler.FA, spoiler.Regex)

			this.spoilers[spoiler.Type].conflicting = append(this.spoilers[spoiler.Type].conflicting, target.Type)
			this.targets[target.Type].conflicting = append(this.targets[target.Type].conflicting, spoiler.Type)
		}
	}
	return nil
}

func (this *Window) growTargets(toType int) error {
	if toType < 0 {
		return fmt.Errorf("window: negative target type %d", toType)
	}
	for toType >= len(this.targets) {
		this.targets = append(this.targets, nil)
	}
	return nil
}

func (this *Window) growSpoilers(toType int) error {
	if toType < 0 {
		return fmt.Errorf("window: negative spoiler type %d", toType)
	}
	for toType >= len(this.spoilers) {
		this.spoilers = append(this.spoilers, nil)
	}
	return nil
}

// FunctionEntered tries to advance every monitored target and spoiler
// instance with the function name encountered in the routine owning this
// window.
func (this *Window) FunctionEntered(name string) {
	for _, instance := range this.targets {
		this.advance(instance, name)
	}
	for _, instance := range this.spoilers {
		this.advance(instance, name)
	}
}

// advance tries to move instance's running automaton with name. A move
// into a fresh run records the current vector clock as the instance's
// start; a dead end invalidates the run so the next function entered can
// start a new attempt from the beginning.
func (this *Window) advance(instance *Instances, name string) {
	switch instance.running.runner.Advance(name) {
	case automaton.MovedToNextState:
		if !instance.running.started {
			instance.running.started = true
			instance.running.start = this.cvc.Copy()
		}
	case automaton.NoTransitionFound:
		instance.running.started = false
		instance.running.runner.Reset()
	case automaton.InvalidSymbol:
	}
}

// FunctionExited checks every target and spoiler instance that just
// completed (whose automaton accepts) against the other routines' last
// completed instances, reporting every violation found, then replaces the
// completed instance with the new last instance.
func (this *Window) FunctionExited(name string) []report.Violation {
	var violations []report.Violation

	for _, target := range this.targets {
		if !target.running.runner.Accepted() {
			continue
		}

		for _, other := range this.registry.others(this) {
			for _, spoilerType := range target.conflicting {
				if v, ok := this.checkTarget(target, other.spoilers[spoilerType], other.routine); ok {
					violations = append(violations, v)
				}
			}
		}

		this.replaceLast(target)
	}

	for _, spoiler := range this.spoilers {
		if !spoiler.running.runner.Accepted() {
			continue
		}

		for _, other := range this.registry.others(this) {
			for _, targetType := range spoiler.conflicting {
				if v, ok := this.checkSpoiler(spoiler, other.targets[targetType], other.routine); ok {
					violations = append(violations, v)
				}
			}
		}

		this.replaceLast(spoiler)
	}

	return violations
}

// checkTarget checks the target instance just completed on this window
// against the last spoiler instance completed on another routine's window.
// Locking order is the target first, the peer spoiler second, matching
// checkSpoiler's self-then-peer order so the two never deadlock against
// each other.
//
// A violation requires both: the spoiler's last start does not
// happen-before the target's start on the spoiler's own axis, and the
// target's end does not happen-before the spoiler's last end on the
// target's own axis - i.e. neither instance's clock shows the other was
// already ordered against it.
func (this *Window) checkTarget(target, spoiler *Instances, spoilerRoutine int) (report.Violation, bool) {
	target.mu.RLock()
	defer target.mu.RUnlock()
	spoiler.mu.RLock()
	defer spoiler.mu.RUnlock()

	if !spoiler.last.start.Valid() {
		return report.Violation{}, false
	}

	if spoiler.last.start.Hb(target.running.start, spoilerRoutine) {
		return report.Violation{}, false
	}
	if this.cvc.Hb(spoiler.last.end, this.routine) {
		return report.Violation{}, false
	}

	return report.Violation{
		TargetRegex:   target.regex,
		TargetThread:  this.routine,
		SpoilerRegex:  spoiler.regex,
		SpoilerThread: spoilerRoutine,
	}, true
}

// checkSpoiler checks the spoiler instance just completed on this window
// against the last target instance completed on another routine's window,
// using the same formula as checkTarget with the target/spoiler roles
// swapped.
func (this *Window) checkSpoiler(spoiler, target *Instances, targetRoutine int) (report.Violation, bool) {
	spoiler.mu.RLock()
	defer spoiler.mu.RUnlock()
	target.mu.RLock()
	defer target.mu.RUnlock()

	if !target.last.start.Valid() {
		return report.Violation{}, false
	}

	if target.last.start.Hb(spoiler.running.start, targetRoutine) {
		return report.Violation{}, false
	}
	if this.cvc.Hb(target.last.end, this.routine) {
		return report.Violation{}, false
	}

	return report.Violation{
		TargetRegex:   target.regex,
		TargetThread:  targetRoutine,
		SpoilerRegex:  spoiler.regex,
		SpoilerThread: this.routine,
	}, true
}

// replaceLast retires the running instance into last, under an exclusive
// lock since other routines' windows read last concurrently.
func (this *Window) replaceLast(instance *Instances) {
	instance.mu.Lock()
	defer instance.mu.Unlock()

	instance.last.start = instance.running.start
	instance.last.end = this.cvc.Copy()

	instance.running.started = false
	instance.running.runner.Reset()
}
