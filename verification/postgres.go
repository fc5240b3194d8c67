package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/accountauth/internal/pg"
)

// PostgresStore keeps codes in the email_verification table. Expiry is an
// explicit column filtered on every read, with PurgeExpired as the sweeper.
type PostgresStore struct {
	pool pg.Pool
	ttl  time.Duration
	now  func() time.Time
}

// NewPostgresStore returns a store over pool. ttl <= 0 selects DefaultTTL.
func NewPostgresStore(pool pg.Pool, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{pool: pool, ttl: ttl, now: time.Now}
}

// Save upserts the row for key. The UNIQUE constraint on email makes
// concurrent saves converge on a single row.
func (s *PostgresStore) Save(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	const q = `
INSERT INTO email_verification (email, verification_code, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE
SET verification_code = EXCLUDED.verification_code,
    expires_at = EXCLUDED.expires_at,
    created_at = now()`

	if _, err := s.pool.Exec(ctx, q, key, value, s.now().Add(s.ttl).UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Find returns the unexpired code for key.
func (s *PostgresStore) Find(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	const q = `
SELECT verification_code FROM email_verification
WHERE email=$1 AND expires_at > $2`

	var value string
	if err := s.pool.QueryRow(ctx, q, key, s.now().UTC()).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

// Delete removes the row for key, expired or not.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	const q = `DELETE FROM email_verification WHERE email=$1`
	if _, err := s.pool.Exec(ctx, q, key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ValidateAndDelete is a single conditional DELETE. Postgres row locking
// lets exactly one of several concurrent statements affect the row.
func (s *PostgresStore) ValidateAndDelete(ctx context.Context, key, candidate string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	if candidate == "" {
		return false, nil
	}
	const q = `
DELETE FROM email_verification
WHERE email=$1 AND verification_code=$2 AND expires_at > $3`

	tag, err := s.pool.Exec(ctx, q, key, candidate, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeExpired deletes rows whose window has closed and reports how many
// were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM email_verification WHERE expires_at <= $1`
	tag, err := s.pool.Exec(ctx, q, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
