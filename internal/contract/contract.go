// Copyright (c) 2025 Erik Kassubek
//
// File: contract.go
// Brief: Parses contract files into targets, spoilers and their automata
//
// Author: Erik Kassubek
// Created: 2025-07-26
//
// License: BSD-3-Clause

package contract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"anacore/internal/automaton"
	"anacore/internal/ulog"
)

// Target is a named pattern that, when matched within a single thread,
// denotes a region of interest. A target is created at contract load and
// retained until program exit.
//
// Fields:
//   - Type int: dense id, unique among targets
//   - Regex string: the original regex
//   - FA *automaton.Automaton: the compiled automaton
//   - Spoilers []*Spoiler: every spoiler that can violate this target
type Target struct {
	Type     int
	Regex    string
	FA       *automaton.Automaton
	Spoilers []*Spoiler
}

// Spoiler is a named pattern whose execution in another thread, if not
// happens-before ordered with a target instance, constitutes a violation.
// A spoiler is linked to exactly one target.
//
// Fields:
//   - Type int: dense id, unique among spoilers
//   - Regex string: the original regex
//   - FA *automaton.Automaton: the compiled automaton
//   - Target *Target: the target this spoiler can violate
type Spoiler struct {
	Type   int
	Regex  string
	FA     *automaton.Automaton
	Target *Target
}

// Contract is a parsed contract file: a set of targets, each with the
// spoilers that can violate it.
type Contract struct {
	Targets []*Target

	nextTargetType  int
	nextSpoilerType int
}

// New creates an empty contract.
func New() *Contract {
	return &Contract{}
}

// ruleRe matches one contract rule: "<target> <- { <spoiler>[, <spoiler>]* }"
var ruleRe = regexp.MustCompile(`^([a-zA-Z0-9_: ()|]+?)\s*<-\s*\{\s*(.+?)\s*\}\s*$`)

// ParseError reports a line that does not match the contract grammar.
type ParseError struct {
	Line int
	Text string
}

func (this *ParseError) Error() string {
	return fmt.Sprintf("contract: malformed rule at line %d: %q", this.Line, this.Text)
}

// Load reads a contract file, one rule per line. Blank lines and lines
// starting with "#" are skipped. A line that fails to parse is logged and
// skipped; the remaining rules still load (ContractParseError, see the
// error model).
//
// Parameter:
//   - path string: path to the contract file
//
// Returns:
//   - error: non-nil only if the file itself could not be opened (FatalInit)
//     or reading it failed part way
func (this *Contract) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("contract: cannot read %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := this.loadRule(lineNo, line); err != nil {
			ulog.Warnf("skipping line %d: %v", lineNo, err)
			continue
		}
	}

	return scanner.Err()
}

func (this *Contract) loadRule(lineNo int, line string) error {
	m := ruleRe.FindStringSubmatch(line)
	if m == nil {
		return &ParseError{Line: lineNo, Text: line}
	}

	targetRegex := strings.TrimSpace(m[1])
	targetFA, err := automaton.Construct(targetRegex)
	if err != nil {
		return err
	}

	target := &Target{
		Type:  this.nextTargetType,
		Regex: targetFA.Regex(),
		FA:    targetFA,
	}
	this.nextTargetType++

	for _, part := range strings.Split(m[2], ",") {
		spoilerRegex := strings.TrimSpace(part)
		spoilerFA, err := automaton.Construct(spoilerRegex)
		if err != nil {
			return err
		}

		spoiler := &Spoiler{
			Type:   this.nextSpoilerType,
			Regex:  spoilerFA.Regex(),
			FA:     spoilerFA,
			Target: target,
		}
		this.nextSpoilerType++

		target.Spoilers = append(target.Spoilers, spoiler)
	}

	this.Targets = append(this.Targets, target)

	return nil
}

// NumTargets returns the number of distinct target types loaded (the size
// the target-indexed dimension of a Window needs).
func (this *Contract) NumTargets() int {
	return this.nextTargetType
}

// NumSpoilers returns the number of distinct spoiler types loaded (the
// size the spoiler-indexed dimension of a Window needs).
func (this *Contract) NumSpoilers() int {
	return this.nextSpoilerType
}

// Dump renders the contract in the human-readable dump format: for each
// target, its id and automaton, followed by its spoilers in declared
// order.
func (this *Contract) Dump() string {
	var b strings.Builder
	for _, target := range this.Targets {
		fmt.Fprintf(&b, "Target %d: %s\n", target.Type, target.Regex)
		b.WriteString(target.FA.Dump())

		for _, spoiler := range target.Spoilers {
			fmt.Fprintf(&b, "  Spoiler %d: %s\n", spoiler.Type, spoiler.Regex)
			b.WriteString(spoiler.FA.Dump())
		}
	}
	return b.String()
}
