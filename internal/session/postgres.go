package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tailortalk/tailortalk/internal/dialog"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps session state in Postgres so multiple replicas
// can serve the same sessions. Per-session serialization comes from a
// row lock held for the duration of the turn.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the sessions table
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("session: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, sessionsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("session: ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Compile-time interface assertion.
var _ Store = (*PostgresStore)(nil)

// Update implements Store. The session row is locked for update inside
// one transaction, so concurrent turns for the same session queue up.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(st *dialog.State) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ensure the row exists before locking it.
	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, state) VALUES ($1, '{}'::jsonb) ON CONFLICT (id) DO NOTHING`, id,
	); err != nil {
		return fmt.Errorf("session: ensure row: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx,
		`SELECT state FROM sessions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&raw); err != nil {
		return fmt.Errorf("session: load state: %w", err)
	}

	var st dialog.State
	if len(raw) > 0 && string(raw) != "{}" {
		if err := json.Unmarshal(raw, &st); err != nil {
			return fmt.Errorf("session: decode state: %w", err)
		}
	}

	if err := fn(&st); err != nil {
		return err
	}

	encoded, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET state = $2, updated_at = now() WHERE id = $1`, id, encoded,
	); err != nil {
		return fmt.Errorf("session: store state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

// End implements Store.
func (s *PostgresStore) End(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session: end %s: %w", id, err)
	}
	return nil
}

// Sweep implements Store.
func (s *PostgresStore) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(maxIdle.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Healthy reports whether the database answers a ping. Used by the
// readiness probe.
func (s *PostgresStore) Healthy(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Join(errors.New("session: postgres unreachable"), err)
	}
	return nil
}
