package accountauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal"
	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
	"github.com/MrEthical07/accountauth/internal/rate"
	"github.com/MrEthical07/accountauth/mail"
	"github.com/MrEthical07/accountauth/verification"
)

const resetKeyPrefix = "reset:"

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SendVerificationCode generates a code for key (an email address), stores
// it for five minutes replacing any earlier code, and mails it. The code is
// returned for callers that deliver it themselves.
func (e *Engine) SendVerificationCode(ctx context.Context, key string) (string, error) {
	if e == nil || e.codes == nil {
		return "", ErrEngineNotReady
	}
	email := normalizeEmail(key)
	if email == "" || strings.HasPrefix(email, resetKeyPrefix) {
		return "", ErrInvalidInput
	}
	return e.issueCode(ctx, email, email, mail.PurposeSignup)
}

// ConsumeVerificationCode atomically checks candidate against the code stored
// for key and deletes it on a match. A mismatch or missing code is (false,
// nil); a given code can succeed at most once.
func (e *Engine) ConsumeVerificationCode(ctx context.Context, key, candidate string) (bool, error) {
	if e == nil || e.codes == nil {
		return false, ErrEngineNotReady
	}
	email := normalizeEmail(key)
	if email == "" {
		return false, ErrInvalidInput
	}
	return e.consumeCode(ctx, email, email, candidate)
}

func (e *Engine) issueCode(ctx context.Context, storeKey, to string, purpose mail.Purpose) (string, error) {
	if err := e.allow(ctx, rate.EmailSend, clientIPFromContext(ctx)); err != nil {
		return "", err
	}

	code, err := internal.NewOTP(e.config.Verification.CodeLength)
	if err != nil {
		return "", err
	}

	if err := e.codes.Save(ctx, storeKey, code); err != nil {
		return "", e.verificationFailure("save", storeKey, err)
	}

	if err := e.mailer.SendCode(ctx, to, purpose, code); err != nil {
		e.log.Error("verification mail failed", zap.String("key", mask.Key(storeKey)), zap.Error(err))
		if derr := e.codes.Delete(ctx, storeKey); derr != nil {
			e.log.Warn("could not discard undelivered code", zap.String("key", mask.Key(storeKey)), zap.Error(derr))
		}
		return "", fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricCodeSent)
	e.emitAudit(ctx, AuditEvent{
		Type:     audit.EventCodeSent,
		Email:    to,
		Success:  true,
		Metadata: map[string]string{"purpose": string(purpose)},
	})
	return code, nil
}

func (e *Engine) consumeCode(ctx context.Context, storeKey, email, candidate string) (bool, error) {
	if err := e.allow(ctx, rate.EmailVerify, email); err != nil {
		return false, err
	}

	ok, err := e.codes.ValidateAndDelete(ctx, storeKey, candidate)
	if err != nil {
		return false, e.verificationFailure("validate", storeKey, err)
	}

	if ok {
		e.metricInc(MetricCodeConsumed)
	} else {
		e.metricInc(MetricCodeRejected)
	}
	e.emitAudit(ctx, AuditEvent{Type: audit.EventCodeConsumed, Email: email, Success: ok})
	return ok, nil
}

func (e *Engine) verificationFailure(op, key string, err error) error {
	if errors.Is(err, verification.ErrInvalidKey) {
		return ErrInvalidInput
	}
	e.log.Error("verification storage failed",
		zap.String("op", op),
		zap.String("key", mask.Key(key)),
		zap.Error(err))
	return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
}

// PurgeExpiredCodes deletes expired rows from the durable verification store.
// It is a no-op when no Postgres pool was configured.
func (e *Engine) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	if e == nil || e.purger == nil {
		return 0, nil
	}
	n, err := e.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return n, nil
}
