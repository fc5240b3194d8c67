package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens. The two share a
// wire format, so every consumer must check the type it expects.
type TokenType string

const (
	// TokenAccess authorizes API calls.
	TokenAccess TokenType = "access"
	// TokenRefresh may only be exchanged for a new token pair.
	TokenRefresh TokenType = "refresh"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

var (
	// ErrMalformed is returned for tokens that are not a decodable three-part JWT
	// or that lack required claims.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature is returned when the MAC does not verify.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the token's expiry is not in the future.
	ErrExpired = errors.New("token expired")
	// ErrUnsupported covers foreign algorithms, unknown token types and
	// issuer mismatches.
	ErrUnsupported = errors.New("token unsupported")
)

var errUnexpectedAlg = errors.New("unexpected signing algorithm")

// Config is read once at construction. Secret must already have passed
// [ValidateSecret]; the codec itself only rejects an empty key.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
	// Now overrides the clock, used by tests to mint tokens in the past.
	Now func() time.Time
}

// Claims is the decoded payload of a token issued by [Codec].
type Claims struct {
	UserID    int64     `json:"userId"`
	TokenType TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

// Email returns the subject, which is the account email.
func (c *Claims) Email() string {
	return c.Subject
}

// TokenID returns the jti.
func (c *Claims) TokenID() string {
	return c.ID
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Remaining returns how long the token stays valid after now. It never
// returns a negative duration.
func (c *Claims) Remaining(now time.Time) time.Duration {
	exp := c.Expiry()
	if exp.IsZero() {
		return 0
	}
	d := exp.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Codec signs and verifies tokens with a shared HMAC secret. It is safe for
// concurrent use.
type Codec struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewCodec builds a codec from cfg. The secret is copied.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretMissing
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Codec{
		secret: secret,
		issuer: strings.TrimSpace(cfg.Issuer),
		leeway: cfg.Leeway,
		now:    now,
	}, nil
}

// Issue mints a token for subject with a fresh jti, valid for ttl.
func (c *Codec) Issue(subject string, userID int64, tokenType TokenType, ttl time.Duration) (string, *Claims, error) {
	if !tokenType.Valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupported, tokenType)
	}
	if ttl <= 0 {
		return "", nil, errors.New("invalid token ttl")
	}

	now := c.now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks structure, signature, expiry and token type, in that order.
func (c *Codec) Verify(token string) (*Claims, error) {
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %s", errUnexpectedAlg, t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}
	if !claims.TokenType.Valid() {
		return nil, ErrUnsupported
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

// VerifyType is Verify plus an explicit token type check. A refresh token
// presented where an access token is required fails with ErrUnsupported.
func (c *Codec) VerifyType(token string, want TokenType) (*Claims, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrUnsupported
	}
	return claims, nil
}

// DecodeUnsafe extracts claims without checking the signature or expiry.
// Only use it on tokens that already passed Verify, or for diagnostics.
func (c *Codec) DecodeUnsafe(token string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrUnsupported
	default:
		return ErrMalformed
	}
}
