// ABOUTME: Structured leveled logger construction shared by every binary
// ABOUTME: Wraps charmbracelet/log with timestamps and a parsed level
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w at the named level. An unknown level
// falls back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}

// NewJSON creates a logger emitting one JSON object per line
func NewJSON(w io.Writer, level string) *log.Logger {
	l := New(w, level)
	l.SetFormatter(log.JSONFormatter)
	return l
}
