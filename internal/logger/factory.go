package logger

import (
	"io"

	"github.com/charmbracelet/log"
)

// Setup configures the global charm logger. debug wins over level; an unknown level
// falls back to info.
func Setup(level string, debug bool) log.Level {
	log.SetOutput(Output)

	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return log.DebugLevel
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetReportTimestamp(true)
	return lvl
}

// Discard returns a logger that drops everything, for tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
