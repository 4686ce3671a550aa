// Package logging builds the structured loggers shared by the pchat components.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// New returns a console logger writing to w at the named level
// (trace, debug, info, warn, error). Unknown levels fall back to info.
func New(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.ParseLevel(level)
	if level == "" {
		lvl = log.InfoLevel
	}
	return &log.Logger{
		Level:      lvl,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: false,
		},
	}
}

// Discard returns a logger that drops every entry.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: log.IOWriter{Writer: io.Discard},
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
