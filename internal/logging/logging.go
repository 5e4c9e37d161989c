// Package logging configures the structured logger used across the
// analysis pipeline.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a console logger for interactive runs. Verbose lowers the
// threshold to debug level.
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return NewWriter(zerolog.ConsoleWriter{Out: os.Stdout}, level)
}

// NewWriter builds a logger at the given level writing to w.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}
