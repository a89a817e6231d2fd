// Copyright (c) 2025 Erik Kassubek
//
// File: contract_test.go
// Brief: Tests for contract file loading
//
// Author: Erik Kassubek
// Created: 2025-07-26
//
// License: BSD-3-Clause

package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContractFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadBasicContract(t *testing.T) {
	path := writeContractFile(t, "a <- { b }\n")

	c := New()
	require.NoError(t, c.Load(path))

	require.Len(t, c.Targets, 1)
	assert.Equal(t, "a", c.Targets[0].Regex)
	require.Len(t, c.Targets[0].Spoilers, 1)
	assert.Equal(t, "b", c.Targets[0].Spoilers[0].Regex)
	assert.Same(t, c.Targets[0], c.Targets[0].Spoilers[0].Target)
}

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	path := writeContractFile(t, "# a comment\n\na <- { b }\n\n# trailing\n")

	c := New()
	require.NoError(t, c.Load(path))

	assert.Len(t, c.Targets, 1)
}

func TestLoadMultipleSpoilers(t *testing.T) {
	path := writeContractFile(t, "a <- { b, c }\n")

	c := New()
	require.NoError(t, c.Load(path))

	require.Len(t, c.Targets[0].Spoilers, 2)
	assert.Equal(t, "b", c.Targets[0].Spoilers[0].Regex)
	assert.Equal(t, "c", c.Targets[0].Spoilers[1].Regex)
}

func TestLoadAssignsDenseTypeIDs(t *testing.T) {
	path := writeContractFile(t, "a <- { b }\nc <- { d, e }\n")

	c := New()
	require.NoError(t, c.Load(path))

	assert.Equal(t, 0, c.Targets[0].Type)
	assert.Equal(t, 1, c.Targets[1].Type)
	assert.Equal(t, 0, c.Targets[0].Spoilers[0].Type)
	assert.Equal(t, 1, c.Targets[1].Spoilers[0].Type)
	assert.Equal(t, 2, c.Targets[1].Spoilers[1].Type)

	assert.Equal(t, 2, c.NumTargets())
	assert.Equal(t, 3, c.NumSpoilers())
}

func TestLoadSkipsMalformedLineButKeepsOthers(t *testing.T) {
	path := writeContractFile(t, "this is not a rule\na <- { b }\n")

	c := New()
	require.NoError(t, c.Load(path))

	require.Len(t, c.Targets, 1)
	assert.Equal(t, "a", c.Targets[0].Regex)
}

func TestLoadRejectsUnsupportedOperator(t *testing.T) {
	path := writeContractFile(t, "a* <- { b }\na <- { b }\n")

	c := New()
	require.NoError(t, c.Load(path))

	// the malformed rule is skipped, the valid one still loads
	require.Len(t, c.Targets, 1)
}

func TestLoadUnreadableFileReturnsError(t *testing.T) {
	c := New()
	err := c.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

// Scenario S4: alternation contract.
func TestLoadAlternationContract(t *testing.T) {
	path := writeContractFile(t, "a <- { b | c }\n")

	c := New()
	require.NoError(t, c.Load(path))

	assert.Equal(t, "b | c", c.Targets[0].Spoilers[0].Regex)
}

func TestDumpListsTargetsAndSpoilers(t *testing.T) {
	path := writeContractFile(t, "a <- { b }\n")

	c := New()
	require.NoError(t, c.Load(path))

	dump := c.Dump()
	assert.Contains(t, dump, "Target 0: a")
	assert.Contains(t, dump, "Spoiler 0: b")
}
