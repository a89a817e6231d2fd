// Copyright (c) 2025 Erik Kassubek
//
// File: ulog.go
// Brief: Logging function
//
// Author: Erik Kassubek
// Created: 2025-02-18
//
// License: BSD-3-Clause

package ulog

import (
	"fmt"
	"log"
)

// Color codes for the logging output
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
)

var numberErr = 0
var numberViolations = 0

var noInfoFlag bool

// Init initializes the logging
//
// Parameter:
//   - noInfo bool: if set, no info is shown during execution; violations
//     and errors are still shown
func Init(noInfo bool) {
	noInfoFlag = noInfo
}

// Info logs an information to the terminal
// Printed in base color
//
// Parameter:
//   - v ...any: the content of the log
func Info(v ...any) {
	if noInfoFlag {
		return
	}
	log.Println(v...)
}

// Infof logs an information to the terminal
// Printed in base color
//
// Parameter:
//   - format string: the format (e.g. "%s")
//   - v ...any: the content of the log
func Infof(format string, v ...any) {
	if noInfoFlag {
		return
	}
	log.Printf(format, v...)
}

// Important logs an important message to the terminal
// Printed in yellow
//
// Parameter:
//   - v ...any: the content of the log
func Important(v ...any) {
	log.Print(Yellow, fmt.Sprint(v...), Reset, "\n")
}

// Violation logs a detected contract violation to the terminal
// Printed in green, counted for the summary at program exit
//
// Parameter:
//   - v ...any: the content of the log
func Violation(v ...any) {
	log.Print(Green, fmt.Sprint(v...), Reset, "\n")
	numberViolations++
}

// Warnf logs a recoverable problem (e.g. a malformed contract line) to the
// terminal. Printed in yellow, not counted - the caller continues normally.
//
// Parameter:
//   - format string: the format (e.g. "%s")
//   - v ...any: the content of the log
func Warnf(format string, v ...any) {
	log.Printf(Yellow+format+Reset, v...)
}

// Error logs an error to the terminal
// Printed in red
// Counts the number of errors
//
// Parameter:
//   - v ...any: the content of the log
func Error(v ...any) {
	log.Print(Red, fmt.Sprint(v...), Reset, "\n")
	numberErr++
}

// Errorf logs an error to the terminal
// Printed in red
// Counts the number of errors
//
// Parameter:
//   - format string: the format (e.g. "%s")
//   - v ...any: the content of the log
func Errorf(format string, v ...any) {
	log.Printf(Red+format+Reset, v...)
	numberErr++
}

// Counts returns the number of errors and violations logged so far.
//
// Returns:
//   - int: number of errors
//   - int: number of violations
func Counts() (int, int) {
	return numberErr, numberViolations
}
