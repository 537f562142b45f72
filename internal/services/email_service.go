package services

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// SendGridEmailSender delivers email through the SendGrid v3 API.
type SendGridEmailSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewEmailSender returns a SendGrid sender, or a log-only sender when no API
// key is configured.
func NewEmailSender(apiKey, from, fromName string) EmailSender {
	if apiKey == "" {
		logrus.Warn("SENDGRID_API_KEY not configured, emails will only be logged")
		return LogEmailSender{}
	}
	return &SendGridEmailSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}
}

// Send sends a plain text message with a minimal HTML alternative.
func (s *SendGridEmailSender) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<p>%s</p>", html.EscapeString(body)),
	)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogEmailSender writes messages to the log instead of sending them.
type LogEmailSender struct{}

func (LogEmailSender) Send(_ context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug(body)
	logrus.WithField("to", to).Info("email delivery skipped (no provider configured)")
	return nil
}
