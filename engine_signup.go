package accountauth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/password"
)

// Signup creates an account after consuming the verification code that was
// sent to in.Email. The code is only consumed once the email is known to be
// free and the password passes policy.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*Account, error) {
	if e == nil || e.accounts == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.VerificationCode == "" {
		return nil, ErrInvalidInput
	}
	if err := password.ValidatePolicy(in.Password); err != nil {
		return nil, ErrPasswordPolicy
	}

	if err := e.allow(ctx, rate.Signup, clientIPFromContext(ctx)); err != nil {
		return nil, err
	}

	exists, err := e.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		e.log.Error("account existence check failed", zap.String("email", mask.Email(email)), zap.Error(err))
		return nil, ErrAccountUnavailable
	}
	if exists {
		e.metricInc(MetricSignupDuplicate)
		return nil, ErrAccountExists
	}

	ok, err := e.consumeCode(ctx, email, email, in.VerificationCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.emitAudit(ctx, AuditEvent{Type: audit.EventSignup, Email: email, Reason: "verification_failed"})
		return nil, ErrVerificationFailed
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	account, err := e.accounts.Create(ctx, Account{
		Email:        email,
		Name:         name,
		Role:         accounts.DefaultRole,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, accounts.ErrExists):
		e.metricInc(MetricSignupDuplicate)
		return nil, ErrAccountExists
	case err != nil:
		e.log.Error("account creation failed", zap.String("email", mask.Email(email)), zap.Error(err))
		return nil, ErrAccountUnavailable
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditEvent{Type: audit.EventSignup, UserID: account.ID, Email: email, Success: true})
	return account, nil
}
