// Copyright (c) 2025 Erik Kassubek
//
// File: config.go
// Brief: Command line configuration for the driver binary
//
// Author: Erik Kassubek
// Created: 2025-07-30
//
// License: BSD-3-Clause

package config

import (
	"flag"
	"fmt"
)

// Config holds every setting the driver binary accepts on the command
// line, parsed in one place so cmd/anacore stays a thin wiring layer.
type Config struct {
	ContractPath string
	TracePath    string
	OutputDir    string

	NoInfo    bool
	NoWarning bool

	MemorySupervisor bool

	DumpContract bool
}

// Parse builds a Config from args (typically os.Args[1:]).
//
// Returns:
//   - *Config: the parsed configuration
//   - error: non-nil if args are malformed or -h was given
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("anacore", flag.ContinueOnError)

	c := &Config{}

	fs.StringVar(&c.ContractPath, "contract", "", "Path to the contract file to load")
	fs.StringVar(&c.TracePath, "trace", "", "Path to a recorded trace to replay through the dispatcher")
	fs.StringVar(&c.OutputDir, "out", "anacoreResult", "Directory for the contract dump and violation log")

	fs.BoolVar(&c.NoInfo, "noInfo", false, "Do not show infos in the terminal (only violations and errors)")
	fs.BoolVar(&c.NoWarning, "noWarning", false, "Parsed but has no effect: warnings for malformed contract lines are always shown")

	fs.BoolVar(&c.MemorySupervisor, "memory-supervisor", false, "Run the memory supervisor alongside the dispatcher")

	fs.BoolVar(&c.DumpContract, "dump", false, "Dump the loaded contract's automata and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if c.ContractPath == "" {
		return nil, fmt.Errorf("config: -contract is required")
	}

	return c, nil
}
