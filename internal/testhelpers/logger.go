package testhelpers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/petracoach/internal/logging"
)

// NewLogger creates a new logger with the given log sink such as testhelpers.NewWriter.
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.NewLogger(logSink, slog.LevelDebug)
}

// NewTestLogger creates a logger that writes to t.Log so that the output is shown only for failing tests.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return NewLogger(NewWriter(t))
}
