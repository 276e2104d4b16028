package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bitcompare/bitcompare/internal/domain"
)

const fromAddress = "alerts@bitcompare.watch"

// SendGridMailer sends transactional email through SendGrid. When no API key
// is configured, NoopMailer is used instead and nothing is sent.
type SendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail("BitCompare", fromAddress),
		subject,
		mail.NewEmail("", to),
		body,
		"",
	)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, email string) error {
	return m.send(ctx, email,
		"Welcome to the BitCompare newsletter",
		"You are subscribed to weekly Bitcoin price insights. Reply STOP to unsubscribe.")
}

func (m *SendGridMailer) SendAlertTriggered(ctx context.Context, alert *domain.PriceAlert, currentPrice float64) error {
	return m.send(ctx, alert.Email,
		"Your Bitcoin price alert fired",
		fmt.Sprintf("Bitcoin is now $%.2f, which is %s your target of $%.2f.",
			currentPrice, alert.Type, alert.TargetPrice))
}

// NoopMailer drops all mail. Stands in when SENDGRID_API_KEY is absent.
type NoopMailer struct{}

func (NoopMailer) SendWelcome(context.Context, string) error { return nil }

func (NoopMailer) SendAlertTriggered(context.Context, *domain.PriceAlert, float64) error {
	return nil
}
