package accountauth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/jwt"
)

// Refresh exchanges a refresh token for a new pair. The old refresh token is
// redeemed from the registry atomically and blacklisted for the rest of its
// lifetime, so each refresh token works once even under concurrent use.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.codec == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	if err := e.allow(ctx, rate.Refresh, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
		}
		return TokenPair{}, err
	}

	claims, err := e.codec.VerifyType(refreshToken, jwt.TokenRefresh)
	if err != nil {
		e.log.Warn("refresh token rejected", zap.String("token", mask.Token(refreshToken)), zap.Error(err))
		return TokenPair{}, e.refreshFailed(ctx, 0, "", err)
	}
	jti := claims.TokenID()

	revoked, err := e.blacklist.Contains(ctx, jti)
	if err != nil {
		e.log.Error("blacklist check failed", zap.String("jti", jti), zap.Error(err))
		return TokenPair{}, e.refreshFailed(ctx, claims.UserID, jti, err)
	}
	if revoked {
		return TokenPair{}, e.refreshFailed(ctx, claims.UserID, jti, errors.New("revoked"))
	}

	account, err := e.accounts.FindByEmail(ctx, claims.Email())
	if err != nil || account.ID != claims.UserID {
		if err != nil && !errors.Is(err, accounts.ErrNotFound) {
			e.log.Error("account lookup failed", zap.String("email", mask.Email(claims.Email())), zap.Error(err))
		}
		return TokenPair{}, e.refreshFailed(ctx, claims.UserID, jti, errors.New("account missing"))
	}

	owner, found, err := e.refresh.Redeem(ctx, jti)
	if err != nil {
		e.log.Error("refresh registry redeem failed", zap.String("jti", jti), zap.Error(err))
		return TokenPair{}, e.refreshFailed(ctx, claims.UserID, jti, err)
	}
	if !found || owner != claims.UserID {
		return TokenPair{}, e.refreshFailed(ctx, claims.UserID, jti, errors.New("not registered"))
	}

	if err := e.blacklist.Add(ctx, jti, claims.Remaining(e.now())); err != nil {
		e.log.Warn("could not blacklist rotated refresh token", zap.String("jti", jti), zap.Error(err))
	}

	pair, err := e.IssueTokenPair(ctx, account.Email, account.ID)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventRefresh, UserID: account.ID, TokenID: jti, Success: true})
	return pair, nil
}

func (e *Engine) refreshFailed(ctx context.Context, userID int64, jti string, cause error) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventRefresh, UserID: userID, TokenID: jti, Reason: cause.Error()})
	return fmt.Errorf("%w: %v", ErrRefreshInvalid, cause)
}

// Logout blacklists the access token for its remaining lifetime and drops
// the refresh token from the registry. The access half must succeed; the
// refresh half is best effort and only logged on failure.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.VerifyType(accessToken, jwt.TokenAccess)
	if err != nil {
		return authError(tokenReason(err), err)
	}
	if err := e.Revoke(ctx, claims.TokenID(), claims.Remaining(e.now())); err != nil {
		return err
	}

	if refreshToken != "" {
		e.dropRefresh(ctx, claims.UserID, refreshToken)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventLogout, UserID: claims.UserID, TokenID: claims.TokenID(), Success: true})
	return nil
}

func (e *Engine) dropRefresh(ctx context.Context, userID int64, refreshToken string) {
	rc, err := e.codec.VerifyType(refreshToken, jwt.TokenRefresh)
	if err != nil || rc.UserID != userID {
		e.log.Warn("logout ignored foreign or invalid refresh token", zap.String("token", mask.Token(refreshToken)))
		return
	}
	if err := e.refresh.Revoke(ctx, rc.TokenID()); err != nil {
		e.log.Warn("refresh registry revoke failed", zap.String("jti", rc.TokenID()), zap.Error(err))
	}
	if err := e.blacklist.Add(ctx, rc.TokenID(), rc.Remaining(e.now())); err != nil {
		e.log.Warn("refresh blacklist failed", zap.String("jti", rc.TokenID()), zap.Error(err))
	}
}

// RevokeAllRefresh removes every registered refresh token of userID and
// returns how many were removed.
func (e *Engine) RevokeAllRefresh(ctx context.Context, userID int64) (int, error) {
	if e == nil || e.refresh == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.refresh.RevokeAll(ctx, userID)
	if err != nil {
		e.log.Error("refresh revoke-all failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if n > 0 {
		e.emitAudit(ctx, AuditEvent{
			Type:     audit.EventRevoke,
			UserID:   userID,
			Success:  true,
			Metadata: map[string]string{"refresh_tokens": fmt.Sprint(n)},
		})
	}
	return n, nil
}
