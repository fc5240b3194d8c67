package accountauth

import (
	"context"
	"time"

	"github.com/MrEthical07/accountauth/internal/accounts"
)

// Account is a registered user as seen by the engine.
type Account = accounts.Account

// AccountProvider is the account repository the engine depends on. Lookups
// for unknown emails must return an error matching accounts.ErrNotFound, and
// Create must return one matching accounts.ErrExists for duplicates.
type AccountProvider interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account Account) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	Email     string
	UserID    int64
	Name      string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries role.
func (i *Identity) HasRole(role string) bool {
	return i != nil && i.Role == role
}

// TokenPair is the result of a successful login, signup or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// SignupInput carries a signup request. VerificationCode must have been
// sent to Email with SendVerificationCode.
type SignupInput struct {
	Email            string
	Name             string
	Password         string
	VerificationCode string
}
