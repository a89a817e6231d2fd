// Copyright (c) 2024 Erik Kassubek
//
// File: clock.go
// Brief: Vector clock used to track the happens-before order between threads
//
// Author: Erik Kassubek
// Created: 2023-07-25
//
// License: BSD-3-Clause

package clock

import (
	"fmt"
)

// VectorClock is a per-thread logical clock. Slots not yet touched read as
// zero, which lets two clocks of different length be compared as if the
// shorter one were extended with zeros.
//
// Fields:
//   - size int: the number of slots the clock has been grown to
//   - clock map[uint32]uint32: the sparse slot values
type VectorClock struct {
	size  int
	clock map[uint32]uint32
}

// New creates an empty vector clock with the given number of slots.
//
// Parameter:
//   - size int: the number of slots
//
// Returns:
//   - *VectorClock: the new, zero-valued clock
func New(size int) *VectorClock {
	if size < 0 {
		size = 0
	}
	return &VectorClock{
		size:  size,
		clock: make(map[uint32]uint32),
	}
}

// Init initializes the clock for thread t: grows it to hold slot t and
// sets that slot to 1. Must not be called on a clock that was already
// touched by Inc, Update or Join.
//
// Parameter:
//   - t int: the thread whose slot is initialized
func (this *VectorClock) Init(t int) {
	if t+1 > this.size {
		this.size = t + 1
	}
	this.clock[uint32(t)] = 1
}

// GetSize returns the number of slots the clock has been grown to.
func (this *VectorClock) GetSize() int {
	if this == nil {
		return 0
	}
	return this.size
}

// GetValue returns the value of slot index, or 0 if the slot was never set.
//
// Parameter:
//   - index int: the slot to read
func (this *VectorClock) GetValue(index int) uint32 {
	if this == nil {
		return 0
	}
	if val, ok := this.clock[uint32(index)]; ok {
		return val
	}
	return 0
}

// Inc increments the clock at slot t. The slot must already belong to the
// clock (t < size); out-of-range slots are silently ignored, mirroring the
// original implementation's assumption that init always runs first.
//
// Parameter:
//   - t int: the thread to increment
func (this *VectorClock) Inc(t int) {
	if this == nil {
		return
	}
	if t >= this.size {
		return
	}
	this.clock[uint32(t)]++
}

// Update sets slot t to k, growing the clock if needed. The caller is
// responsible for k being >= the current value (clocks only move forward).
//
// Parameter:
//   - t int: the slot to set
//   - k uint32: the new value
func (this *VectorClock) Update(t int, k uint32) {
	if this == nil {
		return
	}
	if t+1 > this.size {
		this.size = t + 1
	}
	this.clock[uint32(t)] = k
}

// Join takes, for every slot, the maximum of this clock and o, growing this
// clock if o is longer. Missing slots in either clock are treated as zero.
//
// Parameter:
//   - o *VectorClock: the clock to join with
func (this *VectorClock) Join(o *VectorClock) {
	if this == nil || o == nil {
		return
	}
	if o.size > this.size {
		this.size = o.size
	}
	for slot, val := range o.clock {
		if val > this.clock[slot] {
			this.clock[slot] = val
		}
	}
}

// Copy returns an independent copy of the clock.
func (this *VectorClock) Copy() *VectorClock {
	if this == nil {
		return nil
	}
	cp := New(this.size)
	for slot, val := range this.clock {
		cp.clock[slot] = val
	}
	return cp
}

// Seen returns the set of thread ids i for which this clock has a nonzero
// entry.
//
// Returns:
//   - []int: the threads seen by this clock
func (this *VectorClock) Seen() []int {
	if this == nil {
		return nil
	}
	out := make([]int, 0, len(this.clock))
	for slot, val := range this.clock {
		if val > 0 {
			out = append(out, int(slot))
		}
	}
	return out
}

// Hb is the one-axis happens-before test the violation detector needs: it
// returns true iff this clock's slot t is <= o's slot t. It is not a full
// vector comparison - use LessOrEqual for that.
//
// Parameter:
//   - o *VectorClock: the clock to compare against
//   - t int: the axis (thread id) to compare
func (this *VectorClock) Hb(o *VectorClock, t int) bool {
	return this.GetValue(t) <= o.GetValue(t)
}

// LessOrEqual reports whether every slot of this clock is <= the
// corresponding slot of o, treating missing slots as zero. Unlike Hb this
// compares the full vector; it exists for diagnostics and tests, not for
// the violation detector itself.
//
// Parameter:
//   - o *VectorClock: the clock to compare against
func (this *VectorClock) LessOrEqual(o *VectorClock) bool {
	if this == nil {
		return true
	}
	max := this.size
	if o.GetSize() > max {
		max = o.GetSize()
	}
	for i := 0; i < max; i++ {
		if this.GetValue(i) > o.GetValue(i) {
			return false
		}
	}
	return true
}

// Valid reports whether the clock has ever been initialized, i.e. it has
// at least one nonzero slot.
func (this *VectorClock) Valid() bool {
	if this == nil {
		return false
	}
	for _, val := range this.clock {
		if val > 0 {
			return true
		}
	}
	return false
}

// ToString returns a human-readable [a, b, c, ...] rendering of the clock.
func (this *VectorClock) ToString() string {
	if this == nil {
		return "[]"
	}
	str := "["
	for i := 0; i < this.size; i++ {
		str += fmt.Sprint(this.GetValue(i))
		if i < this.size-1 {
			str += ", "
		}
	}
	str += "]"
	return str
}
