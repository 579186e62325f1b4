// Package notify sends transactional email to customers.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailersend/mailersend-go"
)

// Notifier sends a plain-text email. Delivery is best-effort.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// LogNotifier writes emails to the log instead of sending them. It is the
// default for local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "email", "to", to, "subject", subject, "body", body)
	return nil
}

// MailerSendNotifier delivers email through the MailerSend API.
type MailerSendNotifier struct {
	client    *mailersend.Mailersend
	fromEmail string
	fromName  string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewMailerSendNotifier(apiKey, fromEmail, fromName string, logger *slog.Logger) *MailerSendNotifier {
	return &MailerSendNotifier{
		client:    mailersend.NewMailersend(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

func (n *MailerSendNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	message := n.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: n.fromName, Email: n.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: to}})
	message.SetSubject(subject)
	message.SetText(body)

	res, err := n.client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	n.logger.DebugContext(ctx, "email sent", "to", to, "message_id", res.Header.Get("X-Message-Id"))
	return nil
}
