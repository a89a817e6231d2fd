// Copyright (c) 2025 Erik Kassubek
//
// File: main.go
// Brief: Main file and starting point for the contract validator driver
//
// Author: Erik Kassubek
// Created: 2025-07-30
//
// License: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"os"

	"anacore/internal/config"
	"anacore/internal/contract"
	"anacore/internal/dispatcher"
	"anacore/internal/memguard"
	"anacore/internal/outpaths"
	"anacore/internal/replay"
	"anacore/internal/ulog"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ulog.Init(cfg.NoInfo)

	paths, err := outpaths.Build(cfg.OutputDir)
	if err != nil {
		ulog.Errorf("failed to set up output directory: %v", err)
		os.Exit(1)
	}

	c := contract.New()
	if err := c.Load(cfg.ContractPath); err != nil {
		ulog.Errorf("failed to load contract, continuing without it: %v", err)
	}

	d := dispatcher.New(c)

	if cfg.DumpContract {
		fmt.Print(d.DumpContract())
		return
	}

	if err := os.WriteFile(paths.ContractDump, []byte(d.DumpContract()), 0o644); err != nil {
		ulog.Errorf("failed to write contract dump: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MemorySupervisor {
		sup := memguard.New()
		go sup.Run(ctx, d)
	}

	if cfg.TracePath != "" {
		if err := replay.Run(cfg.TracePath, d); err != nil {
			ulog.Errorf("failed to replay %s: %v", cfg.TracePath, err)
		}
	}

	violations := d.Violations()
	var dump string
	for _, v := range violations {
		dump += v.String() + "\n"
	}
	if err := os.WriteFile(paths.Violations, []byte(dump), 0o644); err != nil {
		ulog.Errorf("failed to write violation log: %v", err)
	}

	errs, found := ulog.Counts()
	ulog.Info(fmt.Sprintf("done: %d violation(s), %d error(s)", found, errs))
}
