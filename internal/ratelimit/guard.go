package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/observability"
)

// Scope names a set of quotas.
type Scope string

// Scopes checked by the service.
const (
	ScopeGlobal             Scope = "global"
	ScopeLogin              Scope = "login"
	ScopePasswordReset      Scope = "password_reset_request"
	ScopeVerificationResend Scope = "verification_resend"
)

// Policy maps a scope to the quotas a request in that scope must pass.
type Policy map[Scope][]Quota

// PolicyFromConfig builds the policy from configured limits.
func PolicyFromConfig(cfg config.RateLimitConfig) Policy {
	return Policy{
		ScopeGlobal: {
			{Limit: cfg.GlobalPerDay, Window: 24 * time.Hour},
			{Limit: cfg.GlobalPerHour, Window: time.Hour},
		},
		ScopeLogin:              {{Limit: cfg.LoginPerMinute, Window: time.Minute}},
		ScopePasswordReset:      {{Limit: cfg.PasswordResetPerMinute, Window: time.Minute}},
		ScopeVerificationResend: {{Limit: cfg.VerificationResendPerMinute, Window: time.Minute}},
	}
}

// GuardOptions tune a Guard.
type GuardOptions struct {
	// FailOpen admits requests when the counter backend errors.
	FailOpen bool
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Guard checks a client against the quotas of a scope.
type Guard struct {
	counter  Counter
	policy   Policy
	failOpen bool
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGuard builds a guard over counter.
func NewGuard(counter Counter, policy Policy, opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		counter:  counter,
		policy:   policy,
		failOpen: opts.FailOpen,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Allow consumes one unit of every quota in scope for client and returns
// domain.ErrRateLimited on the first quota that is exhausted. A nil guard
// allows everything.
func (g *Guard) Allow(ctx context.Context, client string, scope Scope) error {
	if g == nil || g.counter == nil {
		return nil
	}
	if client == "" {
		client = "unknown"
	}
	for _, quota := range g.policy[scope] {
		allowed, err := g.counter.CheckAndConsume(ctx, client, string(scope), quota)
		if err != nil {
			g.metrics.RecordRateLimitFailure(string(scope))
			if g.failOpen {
				g.logger.Warn("rate limit backend unavailable; allowing request",
					zap.String("scope", string(scope)), zap.Error(err))
				continue
			}
			g.logger.Error("rate limit backend unavailable; rejecting request",
				zap.String("scope", string(scope)), zap.Error(err))
			return domain.ErrRateLimited
		}
		if !allowed {
			g.metrics.RecordRateLimitRejection(string(scope))
			return domain.ErrRateLimited
		}
	}
	return nil
}
