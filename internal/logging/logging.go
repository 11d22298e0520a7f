// Package logging builds the process-wide logger.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to stderr so game output on stdout
// stays clean. Verbose lowers the level to Debug.
func New(verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: false,
		Prefix:          "zplay",
	})
}

// Discard returns a logger that drops everything. Library callers who
// pass no logger get this.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
