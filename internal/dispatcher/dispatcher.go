// Copyright (c) 2025 Erik Kassubek
//
// File: dispatcher.go
// Brief: Translates the external event vocabulary into core operations
//
// Author: Erik Kassubek
// Created: 2025-07-29
//
// License: BSD-3-Clause

package dispatcher

import (
	"fmt"
	"sync"
	"sync/atomic"

	"anacore/internal/callbackstack"
	"anacore/internal/clock"
	"anacore/internal/contract"
	"anacore/internal/locktable"
	"anacore/internal/report"
	"anacore/internal/ulog"
	"anacore/internal/window"
)

// threadData is the per-routine state a Dispatcher keeps for the lifetime
// of the process: a live vector clock and the trace window built from it.
// The teacher's thread-local-storage key becomes a plain map entry here,
// since Go has no per-thread storage to model it with directly.
type threadData struct {
	cvc *clock.VectorClock
	win *window.Window
}

// Dispatcher owns every piece of per-process and per-routine state the
// contract validator needs, and exposes one method per external event the
// instrumentation engine can raise.
type Dispatcher struct {
	mu       sync.RWMutex
	threads  map[int]*threadData
	registry *window.Registry
	locks    *locktable.Table
	calls    *callbackstack.Table
	contract *contract.Contract

	violMu     sync.Mutex
	violations []report.Violation

	cancelled atomic.Bool
}

// New creates a dispatcher that checks every routine's events against c.
func New(c *contract.Contract) *Dispatcher {
	return &Dispatcher{
		threads:  make(map[int]*threadData),
		registry: window.NewRegistry(),
		locks:    locktable.New(),
		calls:    callbackstack.New(),
		contract: c,
	}
}

// Cancel requests cooperative shutdown; Cancelled reports whether it was
// called. Intended for a resource supervisor (see internal/memguard) to
// signal that the driving engine should wind the monitored program down.
func (this *Dispatcher) Cancel() {
	this.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (this *Dispatcher) Cancelled() bool {
	return this.cancelled.Load()
}

func (this *Dispatcher) thread(routine int) *threadData {
	this.mu.RLock()
	td, ok := this.threads[routine]
	this.mu.RUnlock()
	if ok {
		return td
	}

	this.mu.Lock()
	defer this.mu.Unlock()
	if td, ok := this.threads[routine]; ok {
		return td
	}
	td = this.startThread(routine)
	return td
}

// startThread builds a new routine's clock and window. Called with mu held.
func (this *Dispatcher) startThread(routine int) *threadData {
	cvc := clock.New(routine + 1)
	cvc.Init(routine)

	win := window.NewWindow(routine, cvc, this.registry)
	if err := win.Monitor(this.contract); err != nil {
		ulog.Errorf("dispatcher: failed to monitor contract for routine %d: %v", routine, err)
	}

	td := &threadData{cvc: cvc, win: win}
	this.threads[routine] = td
	return td
}

// ThreadStarted creates the per-routine state (vector clock, trace window)
// for a newly started routine.
//
// Parameter:
//   - routine int: the routine (goroutine/thread) that just started
func (this *Dispatcher) ThreadStarted(routine int) {
	this.mu.Lock()
	defer this.mu.Unlock()
	if _, ok := this.threads[routine]; ok {
		return
	}
	this.startThread(routine)
}

// ThreadFinished takes no action: the routine's clock, window and last
// completed instances are kept, since other routines may still need to
// read them when checking a violation that completes after this routine
// exits.
//
// Parameter:
//   - routine int: the routine that just finished
func (this *Dispatcher) ThreadFinished(routine int) {
}

// BeforeLockAcquire is exposed for symmetry with BeforeLockRelease; the
// core needs no action before an acquire.
func (this *Dispatcher) BeforeLockAcquire(routine int, lock uint64) {
}

// BeforeLockRelease publishes the releasing routine's clock for lock, then
// ticks its own clock.
//
// Parameter:
//   - routine int: the routine releasing the lock
//   - lock uint64: the lock identity
func (this *Dispatcher) BeforeLockRelease(routine int, lock uint64) {
	td := this.thread(routine)
	this.locks.Release(lock, routine, td.cvc)
}

// AfterLockAcquire joins the acquiring routine's clock with whatever clock
// was last published for lock.
//
// Parameter:
//   - routine int: the routine that just acquired the lock
//   - lock uint64: the lock identity
func (this *Dispatcher) AfterLockAcquire(routine int, lock uint64) {
	td := this.thread(routine)
	this.locks.Acquire(lock, td.cvc)
}

// AfterLockRelease is exposed for symmetry with AfterLockAcquire; the core
// needs no action after a release.
func (this *Dispatcher) AfterLockRelease(routine int, lock uint64) {
}

// FunctionEntered advances routine's trace window with the entered
// function's name.
//
// Parameter:
//   - routine int: the routine executing the function
//   - name string: the function name
func (this *Dispatcher) FunctionEntered(routine int, name string) {
	td := this.thread(routine)
	td.win.FunctionEntered(name)
	ulog.Infof("routine %d: enter %s, vc=%s", routine, name, td.cvc.ToString())
}

// FunctionExited checks routine's trace window for completed instances
// against every other routine's window, reports any violation found, and
// returns the violations (also retained, see Violations).
//
// Parameter:
//   - routine int: the routine executing the function
//   - name string: the function name
//
// Returns:
//   - []report.Violation: every violation found on this exit, possibly empty
func (this *Dispatcher) FunctionExited(routine int, name string) []report.Violation {
	td := this.thread(routine)
	violations := td.win.FunctionExited(name)

	if len(violations) > 0 {
		this.violMu.Lock()
		this.violations = append(this.violations, violations...)
		this.violMu.Unlock()

		for _, v := range violations {
			ulog.Violation(v.String())
		}
	}

	return violations
}

// Violations returns every violation reported so far, across every routine.
func (this *Dispatcher) Violations() []report.Violation {
	this.violMu.Lock()
	defer this.violMu.Unlock()
	out := make([]report.Violation, len(this.violations))
	copy(out, this.violations)
	return out
}

// RegisterAfter registers callback to run after the function currently
// executing on routine, identified by sp, finishes.
//
// Returns:
//   - int: 0 on success, callbackstack.ERegistered if already registered
func (this *Dispatcher) RegisterAfter(routine int, sp uint64, cb callbackstack.AfterCallback, data any) int {
	return this.calls.RegisterAfter(routine, sp, cb, data)
}

// BeforeThrow marks that routine is about to unwind the stack by throwing.
// The landing stack pointer is not known yet (that only becomes available
// once control reaches the matching handler, see AfterBeginCatch), so this
// hook exists for symmetry with the rest of the event vocabulary and takes
// no action of its own.
func (this *Dispatcher) BeforeThrow(routine int) {
}

// AfterBeginCatch runs once control has landed in the exception handler and
// the post-unwind stack pointer sp is known. At the callback-stack level an
// exception unwind is indistinguishable from a long jump: every frame
// abandoned between the throw and the catch finishes without returning.
//
// Parameter:
//   - routine int: the routine that unwound
//   - sp uint64: the stack pointer once control reaches the handler
func (this *Dispatcher) AfterBeginCatch(routine int, sp uint64) {
	this.calls.BeforeLongJump(routine, sp)
}

// BeforeLongJump runs every after-callback registered for a frame that an
// explicit long jump (not an exception) skips over.
//
// Parameter:
//   - routine int: the routine performing the jump
//   - sp uint64: the stack pointer after the jump completes
func (this *Dispatcher) BeforeLongJump(routine int, sp uint64) {
	this.calls.BeforeLongJump(routine, sp)
}

// BeforeReturn runs every after-callback registered for the call frame
// currently returning on routine.
//
// Parameter:
//   - routine int: the routine executing the return
//   - sp uint64: the stack pointer of the returning frame
//   - retVal *uint64: the value the returning function produced
func (this *Dispatcher) BeforeReturn(routine int, sp uint64, retVal *uint64) {
	this.calls.BeforeReturn(routine, sp, retVal)
}

// DumpContract renders the monitored contract in the dump format.
func (this *Dispatcher) DumpContract() string {
	return this.contract.Dump()
}

// String renders a short summary, mostly useful for diagnostics.
func (this *Dispatcher) String() string {
	this.mu.RLock()
	defer this.mu.RUnlock()
	return fmt.Sprintf("dispatcher{routines=%d, targets=%d, spoilers=%d}",
		len(this.threads), this.contract.NumTargets(), this.contract.NumSpoilers())
}
