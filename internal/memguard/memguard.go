// Copyright (c) 2025 Erik Kassubek
//
// File: memguard.go
// Brief: Cancel the running analysis when not enough memory is available
//
// Author: Erik Kassubek
// Created: 2025-07-30
//
// License: BSD-3-Clause

package memguard

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"anacore/internal/ulog"
)

// Canceller is the minimal surface memguard needs from whatever it is
// protecting - the dispatcher satisfies it without memguard importing it
// directly, avoiding a dependency cycle between the two packages.
type Canceller interface {
	Cancel()
}

// Supervisor polls system RAM and swap and triggers a cooperative shutdown
// if either crosses a threshold. One Supervisor is meant to watch one run;
// create a fresh one per run rather than reusing an old one across runs.
type Supervisor struct {
	mu              sync.Mutex
	numberCommands  int
	runningCommands map[int]context.CancelFunc

	canceled    atomic.Bool
	canceledRAM atomic.Bool
}

// New creates an idle Supervisor. Call Run to start watching.
func New() *Supervisor {
	return &Supervisor{runningCommands: make(map[int]context.CancelFunc)}
}

// Run polls memory every 500ms until ctx is done, calling target.Cancel
// once (and on every subsequent poll, cheaply) if available RAM drops
// below 2% of total or swap usage grows by more than 1GB over its level
// when Run started. Intended to be started as its own goroutine.
//
// Parameter:
//   - ctx context.Context: stops the supervisor when canceled
//   - target Canceller: notified once a threshold is crossed
func (this *Supervisor) Run(ctx context.Context, target Canceller) {
	v, err := mem.VirtualMemory()
	if err != nil {
		ulog.Errorf("memguard: failed to read virtual memory stats: %v", err)
	}
	s, err := mem.SwapMemory()
	if err != nil {
		ulog.Errorf("memguard: failed to read swap stats: %v", err)
	}

	thresholdRAM := uint64(float64(v.Total) * 0.02)
	thresholdSwap := uint64(1024 * 1024 * 1024)
	startSwap := s.Used

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err = mem.VirtualMemory()
		if err != nil {
			ulog.Errorf("memguard: failed to read virtual memory stats: %v", err)
			continue
		}
		s, err = mem.SwapMemory()
		if err != nil {
			ulog.Errorf("memguard: failed to read swap stats: %v", err)
			continue
		}

		if v.Available < thresholdRAM || s.Used > thresholdSwap+startSwap {
			this.cancel(target)
			time.Sleep(5 * time.Second)
		}
	}
}

func (this *Supervisor) cancel(target Canceller) {
	this.canceled.Store(true)
	this.canceledRAM.Store(true)
	this.cancelAllRunningCommands()
	ulog.Error("memguard: not enough RAM, cancelling")
	target.Cancel()

	time.Sleep(3 * time.Second)
	runtime.GC()
	debug.FreeOSMemory()
}

// Canceled reports whether the supervisor has ever cancelled the run.
func (this *Supervisor) Canceled() bool {
	return this.canceled.Load()
}

// CanceledForLowMemory reports whether the cancellation (if any) was
// caused by a low-memory condition specifically.
func (this *Supervisor) CanceledForLowMemory() bool {
	return this.canceledRAM.Load()
}

// AddRunningCommand registers cancel so the supervisor can abort it on a
// low-memory event. Returns a handle for RemoveRunningCommand.
func (this *Supervisor) AddRunningCommand(cancel context.CancelFunc) int {
	this.mu.Lock()
	defer this.mu.Unlock()

	this.numberCommands++
	id := this.numberCommands
	this.runningCommands[id] = cancel
	return id
}

// RemoveRunningCommand unregisters a command added with AddRunningCommand.
func (this *Supervisor) RemoveRunningCommand(id int) {
	this.mu.Lock()
	defer this.mu.Unlock()
	delete(this.runningCommands, id)
}

func (this *Supervisor) cancelAllRunningCommands() {
	this.mu.Lock()
	defer this.mu.Unlock()

	for _, cancel := range this.runningCommands {
		cancel()
	}
	this.runningCommands = make(map[int]context.CancelFunc)
}
