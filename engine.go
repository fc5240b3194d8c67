package accountauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/blacklist"
	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/jwt"
	"github.com/MrEthical07/accountauth/mail"
	"github.com/MrEthical07/accountauth/password"
	"github.com/MrEthical07/accountauth/refresh"
	"github.com/MrEthical07/accountauth/verification"
)

const bearerPrefix = "Bearer "

// Engine issues, verifies and revokes tokens and runs the verification code
// flows. It is safe for concurrent use once built.
type Engine struct {
	config    Config
	log       *zap.Logger
	codec     *jwt.Codec
	blacklist blacklist.Registry
	refresh   refresh.Registry
	codes     verification.Store
	purger    expiredPurger
	limiter   *rate.Limiter
	accounts  AccountProvider
	mailer    mail.Mailer
	hasher    password.Hasher
	dummyHash string
	audit     *audit.Dispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueTokenPair mints an access and a refresh token for subject and records
// the refresh token so it can later be exchanged or revoked.
func (e *Engine) IssueTokenPair(ctx context.Context, subject string, userID int64) (TokenPair, error) {
	if e == nil || e.codec == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	access, accessClaims, err := e.codec.Issue(subject, userID, jwt.TokenAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, refreshClaims, err := e.codec.Issue(subject, userID, jwt.TokenRefresh, e.config.JWT.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.refresh.Record(ctx, refreshClaims.TokenID(), userID, e.config.JWT.RefreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}

	e.metricInc(MetricTokenIssued)
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshToken,
		TokenType:        strings.TrimSpace(bearerPrefix),
		AccessExpiresAt:  accessClaims.Expiry(),
		RefreshExpiresAt: refreshClaims.Expiry(),
	}, nil
}

// Authenticate resolves an Authorization header value to an Identity.
//
// The header must carry an access token. The token must verify, must not be
// blacklisted, and must belong to an existing account whose id matches the
// token. A blacklist outage rejects the request. Every failure is an
// *AuthError matching ErrUnauthorized.
func (e *Engine) Authenticate(ctx context.Context, rawHeader string) (*Identity, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := e.now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, e.now().Sub(start)) }()
	}

	token, ok := bearerToken(rawHeader)
	if !ok {
		return nil, e.reject(ctx, authError(ReasonMissing, nil), "")
	}

	claims, err := e.codec.VerifyType(token, jwt.TokenAccess)
	if err != nil {
		e.log.Warn("access token rejected", zap.String("token", mask.Token(token)), zap.Error(err))
		return nil, e.reject(ctx, authError(tokenReason(err), err), "")
	}

	revoked, err := e.blacklist.Contains(ctx, claims.TokenID())
	if err != nil {
		e.log.Error("blacklist check failed", zap.String("jti", claims.TokenID()), zap.Error(err))
		e.metricInc(MetricAuthBackendUnavailable)
		return nil, e.reject(ctx, authError(ReasonBackendUnavailable, err), claims.TokenID())
	}
	if revoked {
		e.metricInc(MetricAuthRevoked)
		return nil, e.reject(ctx, authError(ReasonRevoked, nil), claims.TokenID())
	}

	account, err := e.accounts.FindByEmail(ctx, claims.Email())
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return nil, e.reject(ctx, authError(ReasonAccountMissing, nil), claims.TokenID())
	case err != nil:
		e.log.Error("account lookup failed", zap.String("email", mask.Email(claims.Email())), zap.Error(err))
		e.metricInc(MetricAuthBackendUnavailable)
		return nil, e.reject(ctx, authError(ReasonBackendUnavailable, err), claims.TokenID())
	case account.ID != claims.UserID:
		return nil, e.reject(ctx, authError(ReasonAccountMissing, nil), claims.TokenID())
	}

	e.metricInc(MetricAuthSuccess)
	return &Identity{
		Email:     account.Email,
		UserID:    account.ID,
		Name:      account.Name,
		Role:      account.Role,
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (e *Engine) reject(ctx context.Context, err *AuthError, tokenID string) error {
	e.metricInc(MetricAuthRejected)
	e.emitAudit(ctx, AuditEvent{
		Type:    audit.EventAuthRejected,
		TokenID: tokenID,
		Reason:  string(err.Reason),
	})
	return err
}

// Revoke blacklists tokenID for remaining. A non-positive remaining means the
// token has already expired and nothing is stored.
func (e *Engine) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if e == nil || e.blacklist == nil {
		return ErrEngineNotReady
	}
	if err := e.blacklist.Add(ctx, tokenID, remaining); err != nil {
		if errors.Is(err, blacklist.ErrEmptyTokenID) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		e.log.Error("token revocation failed", zap.String("jti", tokenID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventRevoke, TokenID: tokenID, Success: true})
	return nil
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func tokenReason(err error) AuthReason {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrBadSignature):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrUnsupported):
		return ReasonUnsupported
	default:
		return ReasonMalformed
	}
}

// allow runs one rate-limit check. An empty id skips the check.
func (e *Engine) allow(ctx context.Context, bucket rate.Bucket, id string) error {
	if e.limiter == nil || id == "" {
		return nil
	}
	err := e.limiter.Allow(ctx, bucket, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		return ErrRateLimited
	default:
		e.log.Error("rate limiter unavailable", zap.String("bucket", string(bucket)), zap.Error(err))
		return ErrRateLimiterUnavailable
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
