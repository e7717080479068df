// Package postgres connects to PostgreSQL and applies the embedded schema migrations.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres:// scheme.
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/myrjola/petracoach/internal/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect migrates the database at url and returns a connection pool to it.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := Migrate(ctx, url, logger); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to postgres",
		slog.String("host", pool.Config().ConnConfig.Host),
		slog.String("database", pool.Config().ConnConfig.Database))
	return pool, nil
}

// Migrate applies all pending migrations. url must use the postgres:// scheme.
func Migrate(ctx context.Context, url string, logger *slog.Logger) (err error) {
	start := time.Now()

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		err = errors.Join(err, sourceErr, dbErr)
	}()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.Duration("duration", time.Since(start)))
	return nil
}
