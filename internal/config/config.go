package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret"

// Mail drivers.
const (
	MailDriverLog     = "log"
	MailDriverMailgun = "mailgun"
	MailDriverQueue   = "queue"
)

// Rate limit counter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	RabbitMQ  RabbitMQConfig
	Admin     AdminConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BaseURL               string
	DefaultLanding        string
	ResetPagePath         string
	TrustProxyHeaders     bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PingTimeoutSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	SessionCookieName       string
	PasswordResetTTLMinutes int
	VerificationTTLHours    int
	BcryptCost              int
}

// RateLimitConfig holds per-client quotas.
type RateLimitConfig struct {
	Enabled                     bool
	Backend                     string
	FailOpen                    bool
	GlobalPerDay                int
	GlobalPerHour               int
	LoginPerMinute              int
	PasswordResetPerMinute      int
	VerificationResendPerMinute int
}

// MailConfig selects the outbound delivery collaborator.
type MailConfig struct {
	Driver        string
	From          string
	MailgunDomain string
	MailgunAPIKey string
}

// RabbitMQConfig configures the mail queue.
type RabbitMQConfig struct {
	URL        string
	EmailQueue string
}

// AdminConfig configures the bootstrap administrator.
type AdminConfig struct {
	BootstrapEmail    string
	BootstrapPassword string
	BootstrapName     string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "member-directory"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
			DefaultLanding:        getEnv("APP_DEFAULT_LANDING", "/dashboard"),
			ResetPagePath:         getEnv("APP_RESET_PAGE_PATH", "/reset-password/"),
			TrustProxyHeaders:     getEnvAsBool("HTTP_TRUST_PROXY_HEADERS", false),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			PingTimeoutSec: getEnvAsInt("REDIS_PING_TIMEOUT_SEC", 3),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			SessionCookieName:       getEnv("AUTH_SESSION_COOKIE", "session"),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 60),
			VerificationTTLHours:    getEnvAsInt("AUTH_VERIFICATION_TTL_HOURS", 48),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		RateLimit: RateLimitConfig{
			Enabled:                     getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Backend:                     getEnv("RATE_LIMIT_BACKEND", RateLimitBackendRedis),
			FailOpen:                    getEnvAsBool("RATE_LIMIT_FAIL_OPEN", true),
			GlobalPerDay:                getEnvAsInt("RATE_LIMIT_GLOBAL_PER_DAY", 200),
			GlobalPerHour:               getEnvAsInt("RATE_LIMIT_GLOBAL_PER_HOUR", 50),
			LoginPerMinute:              getEnvAsInt("RATE_LIMIT_LOGIN_PER_MINUTE", 5),
			PasswordResetPerMinute:      getEnvAsInt("RATE_LIMIT_PASSWORD_RESET_PER_MINUTE", 3),
			VerificationResendPerMinute: getEnvAsInt("RATE_LIMIT_VERIFICATION_RESEND_PER_MINUTE", 3),
		},
		Mail: MailConfig{
			Driver:        getEnv("MAIL_DRIVER", MailDriverLog),
			From:          getEnv("MAIL_FROM", "noreply@example.com"),
			MailgunDomain: os.Getenv("MAILGUN_DOMAIN"),
			MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			EmailQueue: getEnv("RABBITMQ_EMAIL_QUEUE", "email_jobs"),
		},
		Admin: AdminConfig{
			BootstrapEmail:    os.Getenv("ADMIN_BOOTSTRAP_EMAIL"),
			BootstrapPassword: os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"),
			BootstrapName:     getEnv("ADMIN_BOOTSTRAP_NAME", "Admin User"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot run.
func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret) {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverMailgun:
		if c.Mail.MailgunDomain == "" || c.Mail.MailgunAPIKey == "" {
			errs = append(errs, errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun driver"))
		}
	case MailDriverQueue:
		if c.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for the queue driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver))
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend))
	}
	if c.Admin.BootstrapPassword != "" && c.Admin.BootstrapEmail == "" {
		errs = append(errs, errors.New("ADMIN_BOOTSTRAP_EMAIL is required with ADMIN_BOOTSTRAP_PASSWORD"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
}

// VerificationTTL returns the verification token lifetime.
func (a AuthConfig) VerificationTTL() time.Duration {
	return time.Duration(a.VerificationTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
