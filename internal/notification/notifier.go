package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

// VerifyPath is the API route the verification link points at.
const VerifyPath = "/auth/verify/"

// DefaultResetPath is the reset page used when NotifierConfig.ResetPath is
// empty. The API does not serve it: a frontend page reads the token from the
// link and posts it to /auth/password/reset/confirm.
const DefaultResetPath = "/reset-password/"

const (
	templateVerify = "verify_email.html"
	templateReset  = "reset_password.html"
)

// NotifierConfig describes how links and subjects are built.
type NotifierConfig struct {
	AppName         string
	BaseURL         string
	ResetPath       string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// Notifier renders account emails and hands them to a Mailer.
type Notifier struct {
	mailer    Mailer
	cfg       NotifierConfig
	templates *template.Template
	logger    *zap.Logger
	metrics   *observability.Metrics
}

type messageData struct {
	AppName   string
	Name      string
	Link      string
	ExpiresIn string
}

// NewNotifier parses the embedded templates.
func NewNotifier(mailer Mailer, cfg NotifierConfig, logger *zap.Logger, metrics *observability.Metrics) (*Notifier, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ResetPath = normalizePath(cfg.ResetPath, DefaultResetPath)
	return &Notifier{mailer: mailer, cfg: cfg, templates: tpl, logger: logger, metrics: metrics}, nil
}

// SendVerification mails the verification link for token.
func (n *Notifier) SendVerification(ctx context.Context, account *domain.Account, token string) bool {
	subject := fmt.Sprintf("Verify Your Email - %s", n.cfg.AppName)
	return n.send(ctx, templateVerify, account, subject, n.link(VerifyPath, token), n.cfg.VerificationTTL)
}

// SendPasswordReset mails the reset link for token.
func (n *Notifier) SendPasswordReset(ctx context.Context, account *domain.Account, token string) bool {
	subject := fmt.Sprintf("Password Reset - %s", n.cfg.AppName)
	return n.send(ctx, templateReset, account, subject, n.link(n.cfg.ResetPath, token), n.cfg.ResetTTL)
}

func (n *Notifier) send(ctx context.Context, name string, account *domain.Account, subject, link string, ttl time.Duration) bool {
	var body bytes.Buffer
	data := messageData{
		AppName:   n.cfg.AppName,
		Name:      account.DisplayName(),
		Link:      link,
		ExpiresIn: humanizeDuration(ttl),
	}
	if err := n.templates.ExecuteTemplate(&body, name, data); err != nil {
		n.logger.Error("render mail template", zap.String("template", name), zap.Error(err))
		n.metrics.RecordMailDelivery(name, false)
		return false
	}

	delivered := n.mailer.Deliver(ctx, account.Identity, subject, body.String())
	n.metrics.RecordMailDelivery(name, delivered)
	return delivered
}

func (n *Notifier) link(path, token string) string {
	return n.cfg.BaseURL + path + url.PathEscape(token)
}

// normalizePath gives path a leading and a trailing slash.
func normalizePath(path, fallback string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return fallback
	}
	return "/" + path + "/"
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a while"
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
