// Package logger provides modifications to charmbracelet/log's default logger to be used in various packages.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Output is where component loggers write. Stdout is left to protocol traffic in -stdio mode.
var Output io.Writer = os.Stderr

// New creates a component logger that follows the global log level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(Output, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: log.GetLevel() <= log.DebugLevel,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(Output, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
