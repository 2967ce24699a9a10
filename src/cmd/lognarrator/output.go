package main

import (
	"fmt"
	"io"
	"os"
)

// console carries user-facing messages that are not log records.
// Quiet mode silences both streams.
type console struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

var stdio = &console{out: os.Stdout, err: os.Stderr}

func setQuiet(quiet bool) {
	stdio.quiet = quiet
}

func (c *console) printf(w io.Writer, format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(w, format, args...)
}

// Print writes to stdout
func Print(format string, args ...any) {
	stdio.printf(stdio.out, format, args...)
}

// Error writes to stderr
func Error(format string, args ...any) {
	stdio.printf(stdio.err, format, args...)
}

// FatalError writes to stderr and exits with code
func FatalError(code int, format string, args ...any) {
	Error(format, args...)
	os.Exit(code)
}
