package notification

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EmailJob is the JSON payload put on the mail queue.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Publisher puts a JSON document on a queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueMailer hands messages to the email worker through a queue. Delivery
// succeeds once the broker accepted the job.
type QueueMailer struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewQueueMailer builds a mailer on publisher.
func NewQueueMailer(publisher Publisher, logger *zap.Logger) *QueueMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueMailer{publisher: publisher, logger: logger}
}

// Deliver enqueues the message.
func (m *QueueMailer) Deliver(ctx context.Context, to, subject, body string) bool {
	if err := m.publisher.PublishJSON(ctx, EmailJob{To: to, Subject: subject, HTML: body}); err != nil {
		m.logger.Warn("mail enqueue failed", zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}

// RabbitPublisher publishes to a durable RabbitMQ queue.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitPublisher dials url and declares queue.
func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// PublishJSON publishes body as a persistent message on the default exchange.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
