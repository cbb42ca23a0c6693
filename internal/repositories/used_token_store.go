package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/thundershare/backend/internal/auth"
	"github.com/thundershare/backend/internal/db"
)

// PostgresUsedTokenStore persists signed-out tokens to PostgreSQL.
type PostgresUsedTokenStore struct {
	pool db.Pool
}

// NewPostgresUsedTokenStore constructs a used-token store backed by PostgreSQL.
func NewPostgresUsedTokenStore(pool db.Pool) *PostgresUsedTokenStore {
	return &PostgresUsedTokenStore{pool: pool}
}

// Add records a token as used. Recording the same token twice is a no-op.
func (s *PostgresUsedTokenStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO used_tokens (token, expires_at)
        VALUES ($1, $2)
        ON CONFLICT (token) DO NOTHING
    `, token, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert used token: %w", err)
	}

	return nil
}

// Contains reports whether the token has been recorded as used.
func (s *PostgresUsedTokenStore) Contains(ctx context.Context, token string) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM used_tokens WHERE token = $1
        )
    `, token)

	var used bool
	if err := row.Scan(&used); err != nil {
		return false, fmt.Errorf("select used token: %w", err)
	}

	return used, nil
}

// DeleteExpired removes ledger entries whose tokens have expired on their own.
func (s *PostgresUsedTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM used_tokens
        WHERE expires_at < $1
    `, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired used tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

var _ auth.RevokedTokenStore = (*PostgresUsedTokenStore)(nil)
