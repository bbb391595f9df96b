package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

const mailgunSendTimeout = 10 * time.Second

// MailgunMailer sends HTML mail through the Mailgun API.
type MailgunMailer struct {
	client *mg.MailgunImpl
	sender string
	logger *zap.Logger
}

// NewMailgunMailer builds a mailer for domain using apiKey.
func NewMailgunMailer(domain, apiKey, sender string, logger *zap.Logger) *MailgunMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailgunMailer{
		client: mg.NewMailgun(domain, apiKey),
		sender: sender,
		logger: logger,
	}
}

// Send delivers one message and returns the transport error. Client errors
// other than throttling wrap ErrUndeliverable.
func (m *MailgunMailer) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, mailgunSendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return classifySendError(err)
}

func classifySendError(err error) error {
	var resp *mg.UnexpectedResponseError
	if errors.As(err, &resp) && resp.Actual >= 400 && resp.Actual < 500 && resp.Actual != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrUndeliverable, err)
	}
	return err
}

// Deliver sends body as the HTML part of the message.
func (m *MailgunMailer) Deliver(ctx context.Context, to, subject, body string) bool {
	if err := m.Send(ctx, to, subject, "", body); err != nil {
		m.logger.Warn("mailgun delivery failed", zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}
