package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost = 10
	// MinLength and MaxLength bound the accepted password length.
	MinLength = 6
	MaxLength = 20
)

const policySpecials = "@$!%*?&"

var (
	// ErrPolicy is returned for passwords that do not meet the policy.
	ErrPolicy = errors.New("password does not meet policy")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Bcrypt implements [Hasher].
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a hasher with the given cost. Zero selects DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns the modular-crypt encoding of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches encodedHash. A mismatch is not an
// error.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// NeedsUpgrade reports whether encodedHash was produced with a lower cost
// than the hasher's.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return cost < b.cost, nil
}

// ValidatePolicy requires 6 to 20 characters drawn from letters, digits and
// @$!%*?&, with at least one lowercase letter, one uppercase letter, one
// digit and one special character.
func ValidatePolicy(password string) error {
	if len(password) < MinLength || len(password) > MaxLength {
		return ErrPolicy
	}
	var lower, upper, digit, special bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case isPolicySpecial(c):
			special = true
		default:
			return ErrPolicy
		}
	}
	if !lower || !upper || !digit || !special {
		return ErrPolicy
	}
	return nil
}

func isPolicySpecial(c byte) bool {
	for i := 0; i < len(policySpecials); i++ {
		if policySpecials[i] == c {
			return true
		}
	}
	return false
}
