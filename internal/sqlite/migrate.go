package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/myrjola/petracoach/internal/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrateUp applies all pending migrations on the read-write connection.
func (db *Database) migrateUp(ctx context.Context) error {
	start := time.Now()

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.ReadWrite, &migratesqlite.Config{}) //nolint:exhaustruct // defaults are fine.
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close is not called since the driver would close the shared read-write pool.

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.Duration("duration", time.Since(start)))
	return nil
}
