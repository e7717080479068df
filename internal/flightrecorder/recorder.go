// Package flightrecorder keeps a rolling runtime trace in memory and writes it to disk when something goes wrong.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	// defaultCooldown is the minimum time between two captures.
	defaultCooldown = 30 * time.Minute
)

// Recorder captures the recent execution trace of the process into a directory.
type Recorder struct {
	logger    *slog.Logger
	recorder  *trace.FlightRecorder
	directory string
	cooldown  time.Duration
	now       func() time.Time
	// lastCapture is the Unix time of the last capture, 0 before the first one.
	lastCapture atomic.Int64
}

// Config configures a [Recorder]. Zero values select the defaults.
type Config struct {
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	Cooldown  time.Duration
	Now       func() time.Time
}

// New creates a recorder writing traces to cfg.Directory, creating the directory when missing.
func New(logger *slog.Logger, cfg Config) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o700); err != nil { //nolint:mnd // owner only.
		return nil, errors.Wrap(err, "create traces directory", slog.String("directory", cfg.Directory))
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Recorder{
		logger:      logger,
		recorder:    trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: cfg.MinAge, MaxBytes: cfg.MaxBytes}),
		directory:   cfg.Directory,
		cooldown:    cfg.Cooldown,
		now:         cfg.Now,
		lastCapture: atomic.Int64{},
	}, nil
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("directory", r.directory), slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the recorded trace to <reason>-<timestamp>.trace and returns its path. Captures within the cooldown
// of the previous one are skipped and return "".
func (r *Recorder) Capture(ctx context.Context, reason string) string {
	now := r.now()
	last := r.lastCapture.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.String("reason", reason), slog.Time("last_capture", time.Unix(last, 0)))
		return ""
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return ""
	}

	name := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	file, err := os.Create(name)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to create trace file",
			slog.String("file", name), errors.SlogError(err))
		return ""
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to close trace file",
				slog.String("file", name), errors.SlogError(closeErr))
		}
	}()

	written, err := r.recorder.WriteTo(file)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to write trace",
			slog.String("file", name), errors.SlogError(err))
		return ""
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("reason", reason), slog.String("file", name), slog.Int64("bytes", written))
	return name
}
