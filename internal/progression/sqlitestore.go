package progression

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// SQLiteStore stores progressions in normalized SQLite tables.
type SQLiteStore struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// NewSQLiteStore creates a store on a migrated database.
func NewSQLiteStore(db *sqlite.Database, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
	}
}

// Load reads the progression of userID in a single read transaction.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (_ Progression, err error) {
	tx, err := s.db.ReadOnly.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault, ReadOnly: true})
	if err != nil {
		return Progression{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// Read transactions have nothing to commit.
		if rollbackErr := ignoreDone(tx.Rollback()); rollbackErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
	}()

	var (
		p                    Progression
		createdAt, updatedAt string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, pack_id, current_phase_id, current_day, intensity_modifier, created_at, updated_at
		FROM progressions
		WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.PackID, &p.CurrentPhaseID, &p.CurrentDay, &p.Adaptations.IntensityModifier,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Progression{}, ErrNotFound
	}
	if err != nil {
		return Progression{}, fmt.Errorf("query progression: %w", err)
	}
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Progression{}, err
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return Progression{}, err
	}

	if err = loadAdaptationMaps(ctx, tx, userID, &p.Adaptations); err != nil {
		return Progression{}, err
	}
	if p.Telemetry, err = loadTelemetry(ctx, tx, userID); err != nil {
		return Progression{}, err
	}
	if p.CompletedWorkouts, err = loadCompletedWorkouts(ctx, tx, userID); err != nil {
		return Progression{}, err
	}

	return p, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Float64: 0, Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// queryEach runs query and calls scan for every row.
func queryEach(ctx context.Context, tx *sql.Tx, query string, args []any, scan func(*sql.Rows) error) (err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	for rows.Next() {
		if err = scan(rows); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

func loadAdaptationMaps(ctx context.Context, tx *sql.Tx, userID string, a *Adaptations) error {
	a.ExerciseReplacements = map[string]string{}
	a.WeightOverrides = map[string]float64{}
	a.VolumeMultipliers = map[string]float64{}
	args := []any{userID}

	err := queryEach(ctx, tx, `SELECT exercise_id, replacement_id FROM exercise_replacements WHERE user_id = ?`, args,
		func(rows *sql.Rows) error {
			var from, to string
			if err := rows.Scan(&from, &to); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			a.ExerciseReplacements[from] = to
			return nil
		})
	if err != nil {
		return fmt.Errorf("load exercise replacements: %w", err)
	}

	err = queryEach(ctx, tx, `SELECT exercise_id, weight_kg FROM weight_overrides WHERE user_id = ?`, args,
		func(rows *sql.Rows) error {
			var id string
			var weight float64
			if err := rows.Scan(&id, &weight); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			a.WeightOverrides[id] = weight
			return nil
		})
	if err != nil {
		return fmt.Errorf("load weight overrides: %w", err)
	}

	err = queryEach(ctx, tx, `SELECT exercise_id, multiplier FROM volume_multipliers WHERE user_id = ?`, args,
		func(rows *sql.Rows) error {
			var id string
			var multiplier float64
			if err := rows.Scan(&id, &multiplier); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			a.VolumeMultipliers[id] = multiplier
			return nil
		})
	if err != nil {
		return fmt.Errorf("load volume multipliers: %w", err)
	}
	return nil
}

func loadTelemetry(ctx context.Context, tx *sql.Tx, userID string) (Telemetry, error) {
	var (
		t           Telemetry
		bodyWeight  sql.NullFloat64
		bodyFat     sql.NullFloat64
		lastUpdated string
	)
	err := tx.QueryRowContext(ctx, `
		SELECT avg_sleep_hours, avg_steps, avg_heart_rate, avg_calories_burned, body_weight_kg, body_fat_percent,
		       last_updated
		FROM telemetry_snapshots
		WHERE user_id = ?`, userID).Scan(
		&t.AvgSleepHours, &t.AvgSteps, &t.AvgHeartRate, &t.AvgCaloriesBurned, &bodyWeight, &bodyFat, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultTelemetry(time.Time{}), nil
	}
	if err != nil {
		return Telemetry{}, fmt.Errorf("query telemetry: %w", err)
	}
	if bodyWeight.Valid {
		t.BodyWeight = &bodyWeight.Float64
	}
	if bodyFat.Valid {
		t.BodyFat = &bodyFat.Float64
	}
	if t.LastUpdated, err = parseTimestamp(lastUpdated); err != nil {
		return Telemetry{}, err
	}
	return t, nil
}

func loadCompletedWorkouts(ctx context.Context, tx *sql.Tx, userID string) ([]CompletedWorkout, error) {
	var workouts []CompletedWorkout
	workoutIndex := map[int64]int{}
	args := []any{userID}

	err := queryEach(ctx, tx, `
		SELECT id, workout_id, workout_date, completed_at, rpe, confidence, notes
		FROM completed_workouts
		WHERE user_id = ?
		ORDER BY position`, args,
		func(rows *sql.Rows) error {
			var (
				id          int64
				w           CompletedWorkout
				completedAt string
			)
			if err := rows.Scan(&id, &w.WorkoutID, &w.Date, &completedAt, &w.RPE, &w.Confidence, &w.Notes); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			var err error
			if w.CompletedAt, err = parseTimestamp(completedAt); err != nil {
				return err
			}
			workoutIndex[id] = len(workouts)
			workouts = append(workouts, w)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load completed workouts: %w", err)
	}
	if len(workouts) == 0 {
		return nil, nil
	}

	type exerciseRef struct{ workout, exercise int }
	exerciseIndex := map[int64]exerciseRef{}
	err = queryEach(ctx, tx, `
		SELECT ce.id, ce.completed_workout_id, ce.exercise_id, ce.skipped, ce.skip_reason
		FROM completed_exercises ce
		JOIN completed_workouts cw ON cw.id = ce.completed_workout_id
		WHERE cw.user_id = ?
		ORDER BY ce.completed_workout_id, ce.position`, args,
		func(rows *sql.Rows) error {
			var (
				id, workoutID int64
				e             CompletedExercise
			)
			if err := rows.Scan(&id, &workoutID, &e.ExerciseID, &e.Skipped, &e.SkipReason); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			wi := workoutIndex[workoutID]
			exerciseIndex[id] = exerciseRef{workout: wi, exercise: len(workouts[wi].Exercises)}
			e.Sets = []CompletedSet{}
			workouts[wi].Exercises = append(workouts[wi].Exercises, e)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load completed exercises: %w", err)
	}

	err = queryEach(ctx, tx, `
		SELECT cs.completed_exercise_id, cs.reps, cs.weight_kg, cs.completed
		FROM completed_sets cs
		JOIN completed_exercises ce ON ce.id = cs.completed_exercise_id
		JOIN completed_workouts cw ON cw.id = ce.completed_workout_id
		WHERE cw.user_id = ?
		ORDER BY cs.completed_exercise_id, cs.position`, args,
		func(rows *sql.Rows) error {
			var (
				exerciseID int64
				set        CompletedSet
				weight     sql.NullFloat64
			)
			if err := rows.Scan(&exerciseID, &set.Reps, &weight, &set.Completed); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			if weight.Valid {
				set.Weight = &weight.Float64
			}
			ref := exerciseIndex[exerciseID]
			e := &workouts[ref.workout].Exercises[ref.exercise]
			e.Sets = append(e.Sets, set)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load completed sets: %w", err)
	}

	err = queryEach(ctx, tx, `
		SELECT pr.completed_workout_id, pr.body_part, pr.severity, pr.note
		FROM pain_reports pr
		JOIN completed_workouts cw ON cw.id = pr.completed_workout_id
		WHERE cw.user_id = ?
		ORDER BY pr.completed_workout_id, pr.position`, args,
		func(rows *sql.Rows) error {
			var (
				workoutID int64
				report    PainReport
			)
			if err := rows.Scan(&workoutID, &report.BodyPart, &report.Severity, &report.Note); err != nil {
				return err //nolint:wrapcheck // wrapped by queryEach.
			}
			wi := workoutIndex[workoutID]
			workouts[wi].PainReports = append(workouts[wi].PainReports, report)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load pain reports: %w", err)
	}

	return workouts, nil
}

// Save upserts p. Adaptation maps are replaced wholesale and only workouts beyond the stored history are inserted.
func (s *SQLiteStore) Save(ctx context.Context, p Progression) (err error) {
	tx, err := s.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreDone(tx.Rollback()))
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progressions (user_id, pack_id, current_phase_id, current_day, intensity_modifier, created_at,
		                          updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			pack_id = excluded.pack_id,
			current_phase_id = excluded.current_phase_id,
			current_day = excluded.current_day,
			intensity_modifier = excluded.intensity_modifier,
			updated_at = excluded.updated_at`,
		p.UserID, p.PackID, p.CurrentPhaseID, p.CurrentDay, p.Adaptations.IntensityModifier,
		formatTimestamp(p.CreatedAt), formatTimestamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert progression: %w", err)
	}

	if err = saveAdaptationMaps(ctx, tx, p.UserID, p.Adaptations); err != nil {
		return err
	}

	t := p.Telemetry
	_, err = tx.ExecContext(ctx, `
		INSERT INTO telemetry_snapshots (user_id, avg_sleep_hours, avg_steps, avg_heart_rate, avg_calories_burned,
		                                 body_weight_kg, body_fat_percent, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			avg_sleep_hours = excluded.avg_sleep_hours,
			avg_steps = excluded.avg_steps,
			avg_heart_rate = excluded.avg_heart_rate,
			avg_calories_burned = excluded.avg_calories_burned,
			body_weight_kg = excluded.body_weight_kg,
			body_fat_percent = excluded.body_fat_percent,
			last_updated = excluded.last_updated`,
		p.UserID, t.AvgSleepHours, t.AvgSteps, t.AvgHeartRate, t.AvgCaloriesBurned, nullFloat(t.BodyWeight), nullFloat(t.BodyFat),
		formatTimestamp(t.LastUpdated))
	if err != nil {
		return fmt.Errorf("upsert telemetry: %w", err)
	}

	var stored int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_workouts WHERE user_id = ?`,
		p.UserID).Scan(&stored); err != nil {
		return fmt.Errorf("count completed workouts: %w", err)
	}
	if stored > len(p.CompletedWorkouts) {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "saved progression has fewer workouts than stored",
			slog.String("user_id", p.UserID),
			slog.Int("stored", stored),
			slog.Int("saved", len(p.CompletedWorkouts)))
	}
	for position := stored; position < len(p.CompletedWorkouts); position++ {
		if err = insertCompletedWorkout(ctx, tx, p.UserID, position, p.CompletedWorkouts[position]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func saveAdaptationMaps(ctx context.Context, tx *sql.Tx, userID string, a Adaptations) error {
	for _, table := range []string{"exercise_replacements", "weight_overrides", "volume_multipliers"} {
		//nolint:gosec // table names are static.
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for from, to := range a.ExerciseReplacements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO exercise_replacements (user_id, exercise_id, replacement_id) VALUES (?, ?, ?)`,
			userID, from, to); err != nil {
			return fmt.Errorf("insert exercise replacement: %w", err)
		}
	}
	for id, weight := range a.WeightOverrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO weight_overrides (user_id, exercise_id, weight_kg) VALUES (?, ?, ?)`,
			userID, id, weight); err != nil {
			return fmt.Errorf("insert weight override: %w", err)
		}
	}
	for id, multiplier := range a.VolumeMultipliers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO volume_multipliers (user_id, exercise_id, multiplier) VALUES (?, ?, ?)`,
			userID, id, multiplier); err != nil {
			return fmt.Errorf("insert volume multiplier: %w", err)
		}
	}
	return nil
}

func insertCompletedWorkout(ctx context.Context, tx *sql.Tx, userID string, position int, w CompletedWorkout) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO completed_workouts (user_id, position, workout_id, workout_date, completed_at, rpe, confidence,
		                                notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, position, w.WorkoutID, w.Date, formatTimestamp(w.CompletedAt), w.RPE, w.Confidence, w.Notes)
	if err != nil {
		return fmt.Errorf("insert completed workout: %w", err)
	}
	workoutRowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read completed workout id: %w", err)
	}

	for i, e := range w.Exercises {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO completed_exercises (completed_workout_id, position, exercise_id, skipped, skip_reason)
			VALUES (?, ?, ?, ?, ?)`,
			workoutRowID, i, e.ExerciseID, e.Skipped, e.SkipReason)
		if err != nil {
			return fmt.Errorf("insert completed exercise: %w", err)
		}
		var exerciseRowID int64
		if exerciseRowID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read completed exercise id: %w", err)
		}
		for j, set := range e.Sets {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO completed_sets (completed_exercise_id, position, reps, weight_kg, completed)
				VALUES (?, ?, ?, ?, ?)`,
				exerciseRowID, j, set.Reps, nullFloat(set.Weight), set.Completed); err != nil {
				return fmt.Errorf("insert completed set: %w", err)
			}
		}
	}

	for i, report := range w.PainReports {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO pain_reports (completed_workout_id, position, body_part, severity, note)
			VALUES (?, ?, ?, ?, ?)`,
			workoutRowID, i, report.BodyPart, report.Severity, report.Note); err != nil {
			return fmt.Errorf("insert pain report: %w", err)
		}
	}
	return nil
}
