package accountauth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/mail"
	"github.com/MrEthical07/accountauth/password"
)

// RequestPasswordReset mails a reset code when email belongs to an account.
// Unknown emails get the same nil result so callers cannot probe for
// registered addresses.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.accounts == nil || e.codes == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	e.metricInc(MetricPasswordResetRequest)

	exists, err := e.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		e.log.Error("account existence check failed", zap.String("email", mask.Email(email)), zap.Error(err))
		return ErrAccountUnavailable
	}
	if !exists {
		return nil
	}

	_, err = e.issueCode(ctx, resetKeyPrefix+email, email, mail.PurposePasswordReset)
	return err
}

// ConfirmPasswordReset sets a new password after consuming the reset code,
// then revokes every refresh token of the account.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if e == nil || e.accounts == nil || e.codes == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return ErrInvalidInput
	}
	if err := password.ValidatePolicy(newPassword); err != nil {
		return ErrPasswordPolicy
	}

	ok, err := e.consumeCode(ctx, resetKeyPrefix+email, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return e.resetFailed(ctx, email, "verification_failed")
	}

	account, err := e.accounts.FindByEmail(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		return e.resetFailed(ctx, email, "unknown_account")
	}
	if err != nil {
		e.log.Error("account lookup failed", zap.String("email", mask.Email(email)), zap.Error(err))
		return ErrAccountUnavailable
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		e.log.Error("password update failed", zap.Int64("user_id", account.ID), zap.Error(err))
		return ErrAccountUnavailable
	}

	if _, err := e.RevokeAllRefresh(ctx, account.ID); err != nil {
		e.log.Warn("password changed but refresh tokens survive", zap.Int64("user_id", account.ID), zap.Error(err))
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventPasswordReset, UserID: account.ID, Email: email, Success: true})
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, email, reason string) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventPasswordReset, Email: email, Reason: reason})
	return ErrVerificationFailed
}
