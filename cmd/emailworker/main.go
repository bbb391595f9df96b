// Command emailworker delivers queued account emails through Mailgun.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/notification"
	"github.com/spec-kit/member-directory/internal/observability"
	"github.com/spec-kit/member-directory/internal/worker"
)

const prefetch = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.RabbitMQ.URL == "" {
		logger.Fatal("RABBITMQ_URL is required")
	}
	if cfg.Mail.MailgunDomain == "" || cfg.Mail.MailgunAPIKey == "" {
		logger.Fatal("MAILGUN_DOMAIN and MAILGUN_API_KEY are required")
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	deliveries, err := worker.Consume(ch, cfg.RabbitMQ.EmailQueue, prefetch)
	if err != nil {
		logger.Fatal("failed to consume", zap.String("queue", cfg.RabbitMQ.EmailQueue), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := notification.NewMailgunMailer(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.From, logger)
	logger.Info("email worker started", zap.String("queue", cfg.RabbitMQ.EmailQueue))
	worker.NewEmailWorker(sender, logger).Run(ctx, deliveries)
	logger.Info("email worker stopped")
}
