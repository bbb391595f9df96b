package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/ratelimit"
)

// RequestPasswordReset issues and mails a reset token. Unknown identities
// return nil so callers cannot tell whether an account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, clientID, identity string) error {
	if err := s.limiter.Allow(ctx, clientID, ratelimit.ScopePasswordReset); err != nil {
		s.outcome("password_reset_request", "rate_limited")
		return err
	}

	account, err := s.accounts.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.outcome("password_reset_request", "unknown_identity")
			return nil
		}
		return err
	}

	issued, err := s.issuer.IssueReset()
	if err != nil {
		return err
	}
	account, err = s.accounts.IssueResetToken(ctx, account.Identity, issued.Digest, issued.ExpiresAt)
	if err != nil {
		return err
	}
	s.outcome("password_reset_request", "issued")

	if s.notifier == nil || !s.notifier.SendPasswordReset(ctx, account, issued.Token) {
		s.logger.Warn("password reset email not delivered", zap.String("identity", account.Identity))
		return domain.ErrDeliveryFailed
	}
	return nil
}

// ConsumePasswordReset sets a new credential for the holder of token and
// clears the token. The token is checked before the confirmation so a
// mismatch does not reveal whether a token is live.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, token, password, confirmation string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	digest := auth.Digest(token)

	account, err := s.accounts.FindByResetToken(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.outcome("password_reset_consume", "invalid_token")
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if !s.issuer.IsResetTokenValid(account, token) {
		s.outcome("password_reset_consume", "invalid_token")
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if password != confirmation {
		return nil, domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	updated, err := s.accounts.ConsumeResetToken(ctx, digest, s.clock.Now(), hash)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.outcome("password_reset_consume", "invalid_token")
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	s.outcome("password_reset_consume", "success")
	return updated, nil
}
