package accountauth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/internal/rate"
)

// Login checks email and password and issues a token pair. Unknown emails
// and wrong passwords both return ErrInvalidCredentials after the same
// amount of hashing work, and the call is padded to
// Config.Security.MinResponseTime measured from WithRequestStart.
//
// A successful login revokes the account's earlier refresh tokens.
func (e *Engine) Login(ctx context.Context, email, plain string) (TokenPair, error) {
	if e == nil || e.accounts == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	start, ok := requestStartFromContext(ctx)
	if !ok {
		start = e.now()
	}
	defer e.padResponse(ctx, start)

	email = normalizeEmail(email)
	if email == "" || plain == "" {
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, ErrInvalidCredentials
	}

	if err := e.allow(ctx, rate.Login, clientIPFromContext(ctx)); err != nil {
		e.loginRateLimited(err)
		return TokenPair{}, err
	}
	if err := e.allow(ctx, rate.LoginByEmail, email); err != nil {
		e.loginRateLimited(err)
		return TokenPair{}, err
	}

	account, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, accounts.ErrNotFound) {
			e.log.Error("account lookup failed", zap.String("email", mask.Email(email)), zap.Error(err))
			return TokenPair{}, ErrAccountUnavailable
		}
		_, _ = e.hasher.Verify(plain, e.dummyHash)
		return TokenPair{}, e.loginFailed(ctx, email, 0, "unknown_account")
	}

	match, err := e.hasher.Verify(plain, account.PasswordHash)
	if err != nil {
		e.log.Error("stored password hash unreadable", zap.Int64("user_id", account.ID), zap.Error(err))
		return TokenPair{}, e.loginFailed(ctx, email, account.ID, "bad_hash")
	}
	if !match {
		return TokenPair{}, e.loginFailed(ctx, email, account.ID, "wrong_password")
	}

	if e.limiter != nil {
		if err := e.limiter.Reset(ctx, rate.LoginByEmail, email); err != nil {
			e.log.Warn("login budget reset failed", zap.Error(err))
		}
	}

	if _, err := e.RevokeAllRefresh(ctx, account.ID); err != nil {
		return TokenPair{}, err
	}
	pair, err := e.IssueTokenPair(ctx, account.Email, account.ID)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventLogin, UserID: account.ID, Email: email, Success: true})
	return pair, nil
}

func (e *Engine) loginFailed(ctx context.Context, email string, userID int64, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventLogin, UserID: userID, Email: email, Reason: reason})
	return ErrInvalidCredentials
}

func (e *Engine) loginRateLimited(err error) {
	if errors.Is(err, ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
	}
}

// padResponse sleeps until MinResponseTime has passed since start, or until
// ctx is done.
func (e *Engine) padResponse(ctx context.Context, start time.Time) {
	wait := e.config.Security.MinResponseTime - e.now().Sub(start)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
