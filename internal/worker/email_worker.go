package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/notification"
)

const sendTimeout = 15 * time.Second

// Sender transmits one rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// EmailWorker drains the mail queue into a Sender.
type EmailWorker struct {
	sender Sender
	logger *zap.Logger
}

// NewEmailWorker builds a worker.
func NewEmailWorker(sender Sender, logger *zap.Logger) *EmailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailWorker{sender: sender, logger: logger}
}

// Run handles deliveries until ctx is done or the channel closes.
// Undecodable jobs and rejected recipients are dropped; other failed sends
// are requeued.
func (w *EmailWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *EmailWorker) handle(ctx context.Context, msg amqp.Delivery) {
	var job notification.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.To == "" {
		w.logger.Warn("dropping malformed email job", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := w.sender.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		if errors.Is(err, notification.ErrUndeliverable) {
			w.logger.Warn("email rejected; dropping", zap.String("subject", job.Subject), zap.Error(err))
			_ = msg.Nack(false, false)
			return
		}
		w.logger.Warn("email send failed; requeueing", zap.String("subject", job.Subject), zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// Consume opens a consumer on queue with the given prefetch.
func Consume(ch *amqp.Channel, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(queue, "", false, false, false, false, nil)
}
