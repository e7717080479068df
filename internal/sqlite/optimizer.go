package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
)

// startDatabaseOptimizer runs PRAGMA optimize on every interval until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startDatabaseOptimizer(ctx context.Context, interval time.Duration) {
	// Analyze all tables once for long-lived connections.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "initial database optimization failed",
			errors.SlogError(errors.Wrap(err, "init optimize")))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "database optimization failed",
				errors.SlogError(errors.Wrap(err, "optimize")))
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	}
}
