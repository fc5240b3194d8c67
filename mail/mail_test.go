package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailerMasksRecipient(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	if err := m.SendCode(context.Background(), "alice@example.com", PurposeSignup, "123456"); err != nil {
		t.Fatalf("SendCode error: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 info entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["to"] != "a***@example.com" {
		t.Fatalf("recipient not masked: %v", fields["to"])
	}
	for _, e := range entries {
		for _, v := range e.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, "123456") {
				t.Fatal("code leaked at info level")
			}
		}
	}
}

func TestLogMailerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewLogMailer(nil).SendCode(ctx, "a@x.com", PurposeSignup, "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeSendClient struct {
	got    *sgmail.SGMailV3
	status int
	err    error
}

func (f *fakeSendClient) SendWithContext(_ context.Context, m *sgmail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridMailerBuildsMessage(t *testing.T) {
	fake := &fakeSendClient{status: 202}
	m := NewSendGridMailer(SendGridConfig{FromAddress: "no-reply@x.com", FromName: "Auth", SandboxMode: true}, nil)
	m.client = fake

	if err := m.SendCode(context.Background(), "bob@x.com", PurposePasswordReset, "654321"); err != nil {
		t.Fatalf("SendCode error: %v", err)
	}
	if fake.got.Subject != "Password reset code" {
		t.Fatalf("unexpected subject %q", fake.got.Subject)
	}
	if fake.got.From.Address != "no-reply@x.com" {
		t.Fatalf("unexpected from %q", fake.got.From.Address)
	}
	if fake.got.MailSettings == nil || fake.got.MailSettings.SandboxMode == nil || !*fake.got.MailSettings.SandboxMode.Enable {
		t.Fatal("expected sandbox mode")
	}
	if !strings.Contains(fake.got.Content[0].Value, "654321") {
		t.Fatal("code missing from body")
	}
}

func TestSendGridMailerFailures(t *testing.T) {
	m := NewSendGridMailer(SendGridConfig{}, nil)

	m.client = &fakeSendClient{err: errors.New("dial tcp: timeout")}
	if err := m.SendCode(context.Background(), "a@x.com", PurposeSignup, "1"); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery on transport error, got %v", err)
	}

	m.client = &fakeSendClient{status: 401}
	if err := m.SendCode(context.Background(), "a@x.com", PurposeSignup, "1"); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery on rejected status, got %v", err)
	}
}
