package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileMegabytes = 50
	maxLogFileBackups   = 5
	maxLogFileAgeDays   = 28
)

// NewLogger creates a text logger writing to w that understands attributes added with [WithAttrs].
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
}

// Output returns the log sink. An empty path means stdout, otherwise the logs are written to a size-rotated file.
func Output(path string) io.WriteCloser {
	if path == "" {
		return nopCloser{os.Stdout}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileMegabytes,
		MaxAge:     maxLogFileAgeDays,
		MaxBackups: maxLogFileBackups,
		LocalTime:  false,
		Compress:   true,
	}
}

// nopCloser keeps stdout open when the application closes its log sink.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
