package progression

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/myrjola/petracoach/internal/errors"
)

// PostgresStore keeps every progression as a single JSONB document.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (Progression, error) {
	var document []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM progressions WHERE user_id = $1`, userID).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progression{}, ErrNotFound
	}
	if err != nil {
		return Progression{}, fmt.Errorf("query progression: %w", err)
	}
	return decodeDocument(document)
}

// Save replaces the document of p.UserID. Stored completed workouts win over the ones in p so that history stays
// append-only.
func (s *PostgresStore) Save(ctx context.Context, p Progression) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{}) //nolint:exhaustruct // default isolation.
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
			}
		}
	}()

	var stored []byte
	err = tx.QueryRow(ctx, `SELECT document FROM progressions WHERE user_id = $1 FOR UPDATE`, p.UserID).Scan(&stored)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lock progression: %w", err)
	default:
		var previous Progression
		if previous, err = decodeDocument(stored); err != nil {
			return err
		}
		p.CompletedWorkouts = appendOnly(previous.CompletedWorkouts, p.CompletedWorkouts)
	}

	document, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progression: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO progressions (user_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		p.UserID, document, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progression: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func decodeDocument(document []byte) (Progression, error) {
	var p Progression
	if err := json.Unmarshal(document, &p); err != nil {
		return Progression{}, fmt.Errorf("decode progression: %w", err)
	}
	p.Adaptations = p.Adaptations.Clone()
	return p, nil
}

// appendOnly keeps the stored history and appends only the workouts beyond it.
func appendOnly(stored, next []CompletedWorkout) []CompletedWorkout {
	if len(next) <= len(stored) {
		return stored
	}
	merged := make([]CompletedWorkout, 0, len(next))
	merged = append(merged, stored...)
	return append(merged, next[len(stored):]...)
}
