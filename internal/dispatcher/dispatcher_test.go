// Copyright (c) 2025 Erik Kassubek
//
// File: dispatcher_test.go
// Brief: End-to-end tests driving the dispatcher through the event vocabulary
//
// Author: Erik Kassubek
// Created: 2025-07-29
//
// License: BSD-3-Clause

package dispatcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anacore/internal/contract"
)

func loadContract(t *testing.T, body string) *contract.Contract {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c := contract.New()
	require.NoError(t, c.Load(path))
	return c
}

const lockA = uint64(1)

// Scenario S1: baseline - only routine 0 runs, executing the target a.
// No spoiler instance has completed anywhere, so a's exit has nothing to
// check against and no violation is reported.
func TestScenarioS1BaselineSync(t *testing.T) {
	d := New(loadContract(t, "a <- { b }\n"))

	d.ThreadStarted(0)
	d.FunctionEntered(0, "a")
	assert.Empty(t, d.FunctionExited(0, "a"))

	// no routine has executed b yet, so a's exit found nothing to check
	// against; this alone is not yet the full S2 scenario.
	assert.Empty(t, d.Violations())
}

// Scenario S2: overlap violation - thread 2 executes b with no
// synchronization against thread 1's completed instance of a.
func TestScenarioS2OverlapViolation(t *testing.T) {
	d := New(loadContract(t, "a <- { b }\n"))

	d.ThreadStarted(0)
	d.FunctionEntered(0, "a")
	assert.Empty(t, d.FunctionExited(0, "a"))

	d.ThreadStarted(1)
	d.FunctionEntered(1, "b")
	violations := d.FunctionExited(1, "b")

	require.Len(t, violations, 1)
	assert.Equal(t, "a", violations[0].TargetRegex)
	assert.Equal(t, 0, violations[0].TargetThread)
	assert.Equal(t, "b", violations[0].SpoilerRegex)
	assert.Equal(t, 1, violations[0].SpoilerThread)

	assert.Equal(t, violations, d.Violations())
}

// Scenario S3: serialized by lock - thread 2's acquire sees thread 1's
// release of the same lock, establishing happens-before, so no violation is
// reported even though both threads still execute a and b.
func TestScenarioS3SerializedByLock(t *testing.T) {
	d := New(loadContract(t, "a <- { b }\n"))

	d.ThreadStarted(0)
	d.BeforeLockAcquire(0, lockA)
	d.AfterLockAcquire(0, lockA)
	d.FunctionEntered(0, "a")
	assert.Empty(t, d.FunctionExited(0, "a"))
	d.BeforeLockRelease(0, lockA)
	d.AfterLockRelease(0, lockA)

	d.ThreadStarted(1)
	d.BeforeLockAcquire(1, lockA)
	d.AfterLockAcquire(1, lockA)
	d.FunctionEntered(1, "b")
	assert.Empty(t, d.FunctionExited(1, "b"))
	d.BeforeLockRelease(1, lockA)
	d.AfterLockRelease(1, lockA)

	assert.Empty(t, d.Violations())
}

// Scenario S4: alternation - a spoiler regex "b | c" still participates,
// on every branch of the alternation, not just the last one.
func TestScenarioS4Alternation(t *testing.T) {
	for _, symbol := range []string{"b", "c"} {
		d := New(loadContract(t, "a <- { b | c }\n"))

		d.ThreadStarted(0)
		d.FunctionEntered(0, "a")
		assert.Empty(t, d.FunctionExited(0, "a"))

		d.ThreadStarted(1)
		d.FunctionEntered(1, symbol)
		violations := d.FunctionExited(1, symbol)

		require.Len(t, violations, 1, "alternation branch %q", symbol)
		assert.Equal(t, "b | c", violations[0].SpoilerRegex)
	}
}

// Scenario S5: multi-symbol target - the target's running.start is captured
// at the first symbol entered, not the last.
func TestScenarioS5MultiSymbolTarget(t *testing.T) {
	d := New(loadContract(t, "a b <- { x }\n"))

	d.ThreadStarted(1)
	d.FunctionEntered(1, "x")
	assert.Empty(t, d.FunctionExited(1, "x"))

	d.ThreadStarted(0)
	d.FunctionEntered(0, "a")
	d.FunctionEntered(0, "b")
	violations := d.FunctionExited(0, "b")

	require.Len(t, violations, 1)
	assert.Equal(t, "a b", violations[0].TargetRegex)
}

// Scenario S6: callback stack with a long jump - after-callbacks registered
// for three nested calls are all invoked, innermost first, with a null
// return-value pointer, once a long jump lands above all three frames.
func TestScenarioS6CallbackStackLongJump(t *testing.T) {
	d := New(loadContract(t, "a <- { b }\n"))

	var order []string
	cb := func(name string) func(routine int, retVal *uint64, data any) {
		return func(routine int, retVal *uint64, data any) {
			assert.Nil(t, retVal)
			order = append(order, name)
		}
	}

	d.ThreadStarted(0)
	assert.Equal(t, 0, d.RegisterAfter(0, 100, cb("f1"), nil))
	assert.Equal(t, 0, d.RegisterAfter(0, 80, cb("f2"), nil))
	assert.Equal(t, 0, d.RegisterAfter(0, 60, cb("f3"), nil))

	d.BeforeLongJump(0, 120)

	assert.Equal(t, []string{"f3", "f2", "f1"}, order)
}
