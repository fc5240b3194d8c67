package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/mask"
)

type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig configures SendGridMailer.
type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	SandboxMode bool
}

// SendGridMailer delivers codes through the SendGrid v3 API.
type SendGridMailer struct {
	cfg    SendGridConfig
	client sendClient
	log    *zap.Logger
}

// NewSendGridMailer builds a mailer for cfg.
func NewSendGridMailer(cfg SendGridConfig, log *zap.Logger) *SendGridMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SendGridMailer{
		cfg:    cfg,
		client: sendgrid.NewSendClient(cfg.APIKey),
		log:    log.Named("mail.sendgrid"),
	}
}

func (m *SendGridMailer) SendCode(ctx context.Context, to string, purpose Purpose, code string) error {
	from := sgmail.NewEmail(m.cfg.FromName, m.cfg.FromAddress)
	plain, html := body(purpose, code)
	message := sgmail.NewSingleEmail(from, subject(purpose), sgmail.NewEmail("", to), plain, html)

	if m.cfg.SandboxMode {
		ms := sgmail.NewMailSettings()
		ms.SetSandboxMode(sgmail.NewSetting(true))
		message.MailSettings = ms
	}

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.log.Error("sendgrid send failed", zap.String("to", mask.Email(to)), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if resp.StatusCode >= 300 {
		m.log.Error("sendgrid rejected message",
			zap.String("to", mask.Email(to)),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}
