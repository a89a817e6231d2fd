// Copyright (c) 2025 Erik Kassubek
//
// File: locktable.go
// Brief: Maps each lock identity to the clock at its last release
//
// Author: Erik Kassubek
// Created: 2025-07-20
//
// License: BSD-3-Clause

package locktable

import (
	"sync"

	"anacore/internal/clock"
)

// Table is the lock-clock table L: a mapping from lock identity to the
// vector clock published at the lock's most recent release.
//
// A single table guarded by a reader-writer lock is used (release takes the
// writer lock, acquire the reader lock); different keys may still be
// written concurrently from the caller's point of view because a release
// for one lock never blocks an acquire for another for long.
type Table struct {
	mu   sync.RWMutex
	clks map[uint64]*clock.VectorClock
}

// New creates an empty lock-clock table.
func New() *Table {
	return &Table{clks: make(map[uint64]*clock.VectorClock)}
}

// Release publishes the releasing thread's clock for lock, then increments
// the thread's own clock. The publish happens before the increment so that
// any thread observing the published clock never also observes the tick
// that logically follows the release.
//
// Parameter:
//   - lock uint64: the lock identity
//   - routine int: the releasing thread
//   - cvc *clock.VectorClock: the releasing thread's current clock
func (this *Table) Release(lock uint64, routine int, cvc *clock.VectorClock) {
	this.mu.Lock()
	this.clks[lock] = cvc.Copy()
	this.mu.Unlock()

	cvc.Inc(routine)
}

// Acquire joins the acquiring thread's clock with the clock published at
// lock's last release. A lock that was never released is silently ignored
// (LockUnknown is not an error, see the contract validator's error model).
//
// Parameter:
//   - lock uint64: the lock identity
//   - cvc *clock.VectorClock: the acquiring thread's current clock
func (this *Table) Acquire(lock uint64, cvc *clock.VectorClock) {
	this.mu.RLock()
	published, ok := this.clks[lock]
	this.mu.RUnlock()

	if !ok {
		return
	}

	cvc.Join(published)
}
