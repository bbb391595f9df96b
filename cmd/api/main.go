package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/member-directory/internal/api/http"
	"github.com/spec-kit/member-directory/internal/api/http/handlers"
	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/clock"
	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/notification"
	"github.com/spec-kit/member-directory/internal/observability"
	"github.com/spec-kit/member-directory/internal/persistence"
	"github.com/spec-kit/member-directory/internal/ratelimit"
	"github.com/spec-kit/member-directory/internal/repository"
	"github.com/spec-kit/member-directory/internal/service"
)

const shutdownTimeout = 10 * time.Second

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dependencies := map[string]handlers.Pinger{"postgres": nil, "redis": nil}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var accounts repository.AccountRepository
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		accounts = repository.NewAccountRepository(pg.PoolHandle())
		dependencies["postgres"] = pg
	} else {
		accounts = repository.NewMemoryAccountRepository()
	}

	clk := clock.System()
	var limiter *ratelimit.Guard
	if cfg.RateLimit.Enabled {
		var counter ratelimit.Counter
		if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
			redis := persistence.NewRedis(ctx, cfg.Redis, logger)
			defer redis.Close()
			counter = ratelimit.NewRedisCounter(redis.Client, clk)
			dependencies["redis"] = redis
		} else {
			counter = ratelimit.NewMemoryCounter(clk)
		}
		limiter = ratelimit.NewGuard(counter, ratelimit.PolicyFromConfig(cfg.RateLimit), ratelimit.GuardOptions{
			FailOpen: cfg.RateLimit.FailOpen,
			Logger:   logger,
			Metrics:  metrics,
		})
	}

	mailer, closeMailer, err := buildMailer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}
	defer closeMailer()

	notifier, err := notification.NewNotifier(mailer, notification.NotifierConfig{
		AppName:         cfg.App.Name,
		BaseURL:         cfg.App.BaseURL,
		ResetPath:       cfg.App.ResetPagePath,
		VerificationTTL: cfg.Auth.VerificationTTL(),
		ResetTTL:        cfg.Auth.PasswordResetTTL(),
	}, logger, metrics)
	if err != nil {
		logger.Fatal("failed to load mail templates", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Accounts: accounts,
		Notifier: notifier,
		Limiter:  limiter,
		Clock:    clk,
		Logger:   logger,
		Metrics:  metrics,
	})
	directory := service.NewDirectoryService(accounts)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Admin); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accounts, cfg.Auth.SessionCookieName)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	middlewareCfg := httptransport.MiddlewareConfig{
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    cfg.App.RequestTimeout(),
		TrustProxy: cfg.App.TrustProxyHeaders,
	}
	if limiter != nil {
		middlewareCfg.Limiter = limiter
	}
	httptransport.RegisterMiddlewares(app, middlewareCfg)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:           handlers.NewAuthHandler(authService, handlers.SessionCookie{Name: cfg.Auth.SessionCookieName, Secure: cfg.IsProduction()}, logger),
		Account:        handlers.NewAccountHandler(directory),
		Directory:      handlers.NewDirectoryHandler(directory),
		Admin:          handlers.NewAdminHandler(authService, directory),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// buildMailer selects the delivery collaborator for MAIL_DRIVER.
func buildMailer(cfg *config.Config, logger *zap.Logger) (notification.Mailer, func(), error) {
	switch cfg.Mail.Driver {
	case config.MailDriverMailgun:
		return notification.NewMailgunMailer(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.From, logger), func() {}, nil
	case config.MailDriverQueue:
		publisher, err := notification.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.EmailQueue)
		if err != nil {
			return nil, nil, err
		}
		return notification.NewQueueMailer(publisher, logger), publisher.Close, nil
	default:
		return notification.NewLogMailer(logger), func() {}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
