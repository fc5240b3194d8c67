// Package mail delivers verification codes to account holders.
package mail

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/mask"
)

// Purpose labels the flow a code belongs to.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
)

// ErrDelivery is returned when a message could not be handed to the provider.
var ErrDelivery = errors.New("mail delivery failed")

// Mailer sends verification codes.
type Mailer interface {
	SendCode(ctx context.Context, to string, purpose Purpose, code string) error
}

// LogMailer writes deliveries to a logger instead of sending them. The
// recipient is masked and the code is only logged at debug level.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer returns a development mailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log.Named("mail")}
}

func (m *LogMailer) SendCode(ctx context.Context, to string, purpose Purpose, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info("verification code issued",
		zap.String("to", mask.Email(to)),
		zap.String("purpose", string(purpose)))
	m.log.Debug("verification code", zap.String("code", code))
	return nil
}

func subject(purpose Purpose) string {
	switch purpose {
	case PurposePasswordReset:
		return "Password reset code"
	default:
		return "Email verification code"
	}
}

func body(purpose Purpose, code string) (plain, html string) {
	plain = fmt.Sprintf("Your %s code is %s. It expires in 5 minutes.", purpose, code)
	html = fmt.Sprintf("<p>Your %s code is <strong>%s</strong>.</p><p>It expires in 5 minutes.</p>", purpose, code)
	return plain, html
}
