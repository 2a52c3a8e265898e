// Package logger provides the verbose diagnostics channel for lernkern.
// Messages are suppressed unless verbose mode is enabled (the --verbose
// flag), so catalog loading, mapping and cache activity stay quiet by
// default and never mix with command output on stdout.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects the diagnostics channel. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug logs fine-grained pipeline activity (index builds, promotions).
func Debug(format string, args ...any) {
	write("DEBUG", format, args...)
}

// Info logs notable state changes (catalog reloads, optimizer decisions).
func Info(format string, args ...any) {
	write("INFO", format, args...)
}

// Warn logs recoverable problems (fallback scans, ignored config values).
func Warn(format string, args ...any) {
	write("WARN", format, args...)
}

// write serialises output so concurrent callers never interleave a line.
func write(level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
}
