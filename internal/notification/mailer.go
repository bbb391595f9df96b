// Package notification delivers account emails.
package notification

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrUndeliverable marks a send the provider rejected outright. Retrying
// the same message will not succeed.
var ErrUndeliverable = errors.New("message rejected by mail provider")

// Mailer delivers a message to an address. Implementations report failure
// through the return value and never panic on transport errors.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) bool
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a mailer for development.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Deliver logs the message and always succeeds.
func (m *LogMailer) Deliver(_ context.Context, to, subject, body string) bool {
	m.logger.Info("mail delivery (log driver)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	m.logger.Debug("mail body", zap.String("body", body))
	return true
}
