// Copyright (c) 2025 Erik Kassubek
//
// File: tokenize.go
// Brief: Tokenizer for the restricted regex grammar accepted by contracts
//
// Author: Erik Kassubek
// Created: 2025-07-25
//
// License: BSD-3-Clause

package automaton

import (
	"fmt"
	"strings"
)

// unsupportedOperators are explicitly rejected: the grammar has no
// repetition construct, so a "*", "+" or "?" can only be a mistake.
const unsupportedOperators = "*+?"

// isSymbolRune reports whether r may appear in a symbol, i.e. a function
// name: [A-Za-z0-9_:]+.
func isSymbolRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == ':':
		return true
	default:
		return false
	}
}

// tokenize splits regex into "(", ")", "|" and symbol tokens, discarding
// whitespace. It rejects the Kleene-star family and any other character
// outside the symbol alphabet and "(|)".
//
// Parameter:
//   - regex string: the regex to tokenize
//
// Returns:
//   - []string: the tokens, in order
//   - error: non-nil if an unsupported or unknown character is encountered
func tokenize(regex string) ([]string, error) {
	var tokens []string
	var sym strings.Builder

	flush := func() {
		if sym.Len() > 0 {
			tokens = append(tokens, sym.String())
			sym.Reset()
		}
	}

	for _, r := range regex {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case r == '(' || r == ')' || r == '|':
			flush()
			tokens = append(tokens, string(r))
		case strings.ContainsRune(unsupportedOperators, r):
			return nil, fmt.Errorf("regex %q uses unsupported operator %q (no Kleene star in this grammar)", regex, r)
		case isSymbolRune(r):
			sym.WriteRune(r)
		default:
			return nil, fmt.Errorf("regex %q contains unexpected character %q", regex, r)
		}
	}
	flush()

	return tokens, nil
}
