package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/ratelimit"
)

// RequestVerification issues a fresh verification token for identity,
// replacing any earlier one, and mails it. Verified accounts are left alone.
func (s *AuthService) RequestVerification(ctx context.Context, identity string) error {
	account, err := s.accounts.FindByIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if account.IsVerified {
		return nil
	}

	issued, err := s.issuer.IssueVerification()
	if err != nil {
		return err
	}
	account, err = s.accounts.IssueVerificationToken(ctx, account.Identity, issued.Digest, issued.ExpiresAt)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Verified since it was read.
			return nil
		}
		return err
	}

	if !s.deliverVerification(ctx, account, issued.Token) {
		return domain.ErrDeliveryFailed
	}
	return nil
}

// ResendVerification is RequestVerification behind the resend quota.
func (s *AuthService) ResendVerification(ctx context.Context, clientID, identity string) error {
	if err := s.limiter.Allow(ctx, clientID, ratelimit.ScopeVerificationResend); err != nil {
		s.outcome("verification_resend", "rate_limited")
		return err
	}
	return s.RequestVerification(ctx, identity)
}

// ConsumeVerification marks the holder of token verified. Unknown, expired
// and already used tokens all yield domain.ErrInvalidOrExpiredToken.
func (s *AuthService) ConsumeVerification(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	digest := auth.Digest(token)

	account, err := s.accounts.FindByVerificationToken(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.outcome("verification_consume", "invalid_token")
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if !s.issuer.IsVerificationTokenValid(account, token) {
		s.outcome("verification_consume", "invalid_token")
		return nil, domain.ErrInvalidOrExpiredToken
	}

	// The conditional update loses to any concurrent consumer of the same token.
	verified, err := s.accounts.ConsumeVerificationToken(ctx, digest, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.outcome("verification_consume", "invalid_token")
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	s.outcome("verification_consume", "success")
	return verified, nil
}

func (s *AuthService) deliverVerification(ctx context.Context, account *domain.Account, token string) bool {
	if s.notifier == nil || !s.notifier.SendVerification(ctx, account, token) {
		s.logger.Warn("verification email not delivered", zap.String("identity", account.Identity))
		return false
	}
	return true
}
