package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/myrjola/petracoach/internal/errors"
)

// exportTable describes how to select the rows of a single user from a table.
type exportTable struct {
	name   string
	filter string
}

// exportTables are ordered so that referenced rows are copied before the rows referencing them.
//
//nolint:gochecknoglobals // static table metadata.
var exportTables = []exportTable{
	{name: "progressions", filter: "user_id = ?"},
	{name: "exercise_replacements", filter: "user_id = ?"},
	{name: "weight_overrides", filter: "user_id = ?"},
	{name: "volume_multipliers", filter: "user_id = ?"},
	{name: "telemetry_snapshots", filter: "user_id = ?"},
	{name: "completed_workouts", filter: "user_id = ?"},
	{
		name:   "completed_exercises",
		filter: "completed_workout_id IN (SELECT id FROM main.completed_workouts WHERE user_id = ?)",
	},
	{
		name: "completed_sets",
		filter: `completed_exercise_id IN (
			SELECT ce.id
			FROM main.completed_exercises ce
			JOIN main.completed_workouts cw ON cw.id = ce.completed_workout_id
			WHERE cw.user_id = ?)`,
	},
	{
		name:   "pain_reports",
		filter: "completed_workout_id IN (SELECT id FROM main.completed_workouts WHERE user_id = ?)",
	},
}

// ExportUser copies everything stored about userID into a standalone SQLite database under dir and returns its
// path. The caller owns the returned file.
func (db *Database) ExportUser(ctx context.Context, userID string, dir string) (_ string, err error) {
	exportDir, err := os.MkdirTemp(dir, "export-*")
	if err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	exportPath := filepath.Join(exportDir, "progression.sqlite3")

	conn, err := db.ReadOnly.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("get db connection: %w", err)
	}
	defer func() {
		// The pooled connection must not stay writable.
		_, restoreErr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = TRUE")
		err = errors.Join(err, restoreErr, conn.Close())
	}()

	if _, err = conn.ExecContext(ctx, "PRAGMA query_only = FALSE"); err != nil {
		return "", fmt.Errorf("disable query only mode: %w", err)
	}
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS export", "file:"+exportPath+"?mode=rwc"); err != nil {
		return "", fmt.Errorf("attach export database: %w", err)
	}
	defer func() {
		_, detachErr := conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE export")
		err = errors.Join(err, detachErr)
	}()

	if err = copyUserTables(ctx, conn, userID); err != nil {
		return "", err
	}
	return exportPath, nil
}

func copyUserTables(ctx context.Context, conn *sql.Conn, userID string) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, table := range exportTables {
		var createSQL string
		if err = tx.QueryRowContext(ctx, `SELECT sql FROM main.sqlite_schema WHERE type = 'table' AND name = ?`,
			table.name).Scan(&createSQL); err != nil {
			return fmt.Errorf("read schema of %s: %w", table.name, err)
		}
		exportSQL := "CREATE TABLE export." + table.name + createSQL[len("CREATE TABLE "+table.name):]
		if _, err = tx.ExecContext(ctx, exportSQL); err != nil {
			return fmt.Errorf("create export table %s: %w", table.name, err)
		}
		//nolint:gosec // table names and filters are static.
		query := fmt.Sprintf("INSERT INTO export.%[1]s SELECT * FROM main.%[1]s WHERE %[2]s", table.name, table.filter)
		if _, err = tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("copy rows of %s: %w", table.name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}
