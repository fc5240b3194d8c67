// Package accounts is the Postgres-backed account repository used for login,
// signup and identity enrichment.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/accountauth/internal/pg"
)

// DefaultRole is assigned to accounts created without an explicit role.
const DefaultRole = "USER"

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by Create when the email is already registered.
	ErrExists = errors.New("account already exists")
)

// Account is a registered user.
type Account struct {
	ID           int64
	Email        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Repo implements account persistence on Postgres.
type Repo struct {
	pool pg.Pool
}

// NewRepo constructs a repository over pool.
func NewRepo(pool pg.Pool) *Repo { return &Repo{pool: pool} }

// FindByEmail selects an account by email.
func (r *Repo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `
SELECT id, email, name, role, password_hash, created_at
FROM accounts WHERE email=$1`
	var a Account
	err := r.pool.QueryRow(ctx, q, normalize(email)).
		Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsByEmail reports whether email is registered.
func (r *Repo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM accounts WHERE email=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, normalize(email)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a and returns it with the generated id and timestamp.
func (r *Repo) Create(ctx context.Context, a Account) (*Account, error) {
	const q = `
INSERT INTO accounts (email, name, role, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	a.Email = normalize(a.Email)
	if a.Role == "" {
		a.Role = DefaultRole
	}
	err := r.pool.QueryRow(ctx, q, a.Email, a.Name, a.Role, a.PasswordHash).Scan(&a.ID, &a.CreatedAt)
	if pg.IsUniqueViolation(err) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdatePasswordHash replaces the stored hash for id.
func (r *Repo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	const q = `UPDATE accounts SET password_hash=$2 WHERE id=$1`
	tag, err := r.pool.Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
