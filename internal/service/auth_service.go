package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/clock"
	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/observability"
	"github.com/spec-kit/member-directory/internal/ratelimit"
	"github.com/spec-kit/member-directory/internal/repository"
)

// Notifier hands account emails to the delivery collaborator.
type Notifier interface {
	SendVerification(ctx context.Context, account *domain.Account, token string) bool
	SendPasswordReset(ctx context.Context, account *domain.Account, token string) bool
}

// RateLimiter consumes quota for a client within a scope.
type RateLimiter interface {
	Allow(ctx context.Context, client string, scope ratelimit.Scope) error
}

// AuthService coordinates registration, login, verification, reset and
// administrative account flows.
type AuthService struct {
	accounts       repository.AccountRepository
	hasher         *auth.PasswordHasher
	issuer         *auth.TokenIssuer
	tokenMgr       *auth.TokenManager
	notifier       Notifier
	limiter        RateLimiter
	clock          clock.Clock
	logger         *zap.Logger
	metrics        *observability.Metrics
	defaultLanding string
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Accounts repository.AccountRepository
	Notifier Notifier
	Limiter  RateLimiter
	Clock    clock.Clock
	// Random overrides the token entropy source; nil means crypto/rand.
	Random  io.Reader
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = allowAll{}
	}
	landing := cfg.App.DefaultLanding
	if landing == "" {
		landing = "/"
	}
	return &AuthService{
		accounts:       deps.Accounts,
		hasher:         auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		issuer:         auth.NewTokenIssuer(deps.Random, clk, cfg.Auth.PasswordResetTTL(), cfg.Auth.VerificationTTL()),
		tokenMgr:       auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		notifier:       deps.Notifier,
		limiter:        limiter,
		clock:          clk,
		logger:         logger,
		metrics:        deps.Metrics,
		defaultLanding: landing,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Identity     string
	Password     string
	Confirmation string
	Kind         domain.AccountKind
	Profile      domain.Profile
}

// Register creates an unverified account and mails its verification link.
// When delivery fails the account is still returned, together with
// domain.ErrDeliveryFailed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	if !in.Kind.Valid() {
		return nil, domain.ErrInvalidAccountKind
	}
	if in.Password != in.Confirmation {
		s.outcome("register", "password_mismatch")
		return nil, domain.ErrPasswordMismatch
	}

	account := domain.NewAccount(in.Identity, in.Kind, in.Profile.ForKind(in.Kind), s.clock.Now())
	if err := account.SetCredential(s.hasher, in.Password); err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	issued, err := s.issuer.IssueVerification()
	if err != nil {
		return nil, err
	}
	account.IssueVerification(issued.Digest, issued.ExpiresAt)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			s.outcome("register", "duplicate")
		}
		return nil, err
	}
	s.outcome("register", "success")

	if !s.deliverVerification(ctx, account, issued.Token) {
		return account, domain.ErrDeliveryFailed
	}
	return account, nil
}

// LoginInput carries a login attempt. ClientID identifies the caller for
// rate limiting; Next is the requested post-login destination.
type LoginInput struct {
	ClientID string
	Identity string
	Password string
	Next     string
}

// LoginResult is the established session.
type LoginResult struct {
	Account  *domain.Account
	Token    string
	Session  domain.Session
	Redirect string
}

// Login authenticates an account. Unknown identities and wrong passwords both
// yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := s.limiter.Allow(ctx, in.ClientID, ratelimit.ScopeLogin); err != nil {
		s.outcome("login", "rate_limited")
		return nil, err
	}

	account, err := s.accounts.FindByIdentity(ctx, in.Identity)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.hasher.Burn(in.Password)
			s.outcome("login", "invalid_credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !account.VerifyCredential(s.hasher, in.Password) {
		s.outcome("login", "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !account.IsActive {
		s.outcome("login", "inactive")
		return nil, domain.ErrAccountInactive
	}

	token, session, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	s.outcome("login", "success")
	return &LoginResult{
		Account:  account,
		Token:    token,
		Session:  session,
		Redirect: auth.SafeRedirect(in.Next, s.defaultLanding),
	}, nil
}

// ChangePassword verifies the current password before storing the new one.
// The store swaps the hash only if it is still the one that was verified.
func (s *AuthService) ChangePassword(ctx context.Context, identity, currentPassword, newPassword, confirmation string) error {
	account, err := s.accounts.FindByIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if !account.VerifyCredential(s.hasher, currentPassword) {
		return domain.ErrInvalidCredentials
	}
	if newPassword != confirmation {
		return domain.ErrPasswordMismatch
	}
	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	if _, err := s.accounts.ChangeCredential(ctx, account.Identity, account.CredentialHash, newHash); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// ElevateToAdmin grants admin rights to target. The actor is reloaded and must
// be an active admin.
func (s *AuthService) ElevateToAdmin(ctx context.Context, actor, target string) (*domain.Account, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	account, err := s.accounts.SetAdmin(ctx, target)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account elevated to admin", zap.String("actor", domain.NormalizeIdentity(actor)), zap.String("target", account.Identity))
	return account, nil
}

// ToggleActive flips the active flag of target. Admins cannot deactivate
// their own account.
func (s *AuthService) ToggleActive(ctx context.Context, actor, target string) (*domain.Account, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if domain.NormalizeIdentity(actor) == domain.NormalizeIdentity(target) {
		return nil, domain.ErrForbidden
	}
	return s.accounts.ToggleActive(ctx, target)
}

// CreateAdmin creates a verified, active admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, identity, password, fullName string) (*domain.Account, error) {
	account := domain.NewAccount(identity, domain.AccountKindMember, domain.Profile{FullName: fullName}, s.clock.Now())
	account.IsAdmin = true
	account.IsVerified = true
	if err := account.SetCredential(s.hasher, password); err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// EnsureBootstrapAdmin creates the configured admin when no admin exists yet.
// It does nothing without a configured password.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	isAdmin := true
	admins, err := s.accounts.Count(ctx, repository.AccountFilter{IsAdmin: &isAdmin})
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}
	account, err := s.CreateAdmin(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword, cfg.BootstrapName)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			s.logger.Warn("bootstrap admin identity already registered; not elevating", zap.String("identity", domain.NormalizeIdentity(cfg.BootstrapEmail)))
			return nil
		}
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("identity", account.Identity))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) requireAdmin(ctx context.Context, actor string) error {
	account, err := s.accounts.FindByIdentity(ctx, actor)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !account.IsActive || !account.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string, ratelimit.Scope) error { return nil }

func (s *AuthService) outcome(operation, result string) {
	s.metrics.RecordAuthOutcome(operation, result)
}
