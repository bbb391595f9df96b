package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-directory/internal/domain"
)

func TestConsumeVerificationSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	token := env.notifier.verificationToken("alice@example.com")

	account, err := env.svc.ConsumeVerification(ctx, token)
	require.NoError(t, err)
	assert.True(t, account.IsVerified)
	assert.Nil(t, account.VerificationTokenHash)
	assert.Nil(t, account.VerificationTokenExpiresAt)

	_, err = env.svc.ConsumeVerification(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	stored, err := env.accounts.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
}

func TestConsumeVerificationRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	for _, token := range []string{"", "not-a-token", env.notifier.verificationToken("alice@example.com") + "x"} {
		_, err := env.svc.ConsumeVerification(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	}

	stored, err := env.accounts.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.NotNil(t, stored.VerificationTokenHash)
}

func TestConsumeVerificationExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	token := env.notifier.verificationToken("alice@example.com")

	env.clock.Advance(48*time.Hour + time.Second)

	_, err := env.svc.ConsumeVerification(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestResendVerificationReplacesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	first := env.notifier.verificationToken("alice@example.com")

	require.NoError(t, env.svc.ResendVerification(ctx, "1.2.3.4", "alice@example.com"))
	second := env.notifier.verificationToken("alice@example.com")
	require.NotEqual(t, first, second)

	_, err := env.svc.ConsumeVerification(ctx, first)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	_, err = env.svc.ConsumeVerification(ctx, second)
	assert.NoError(t, err)
}

func TestResendVerificationVerifiedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	token := env.notifier.verificationToken("alice@example.com")
	_, err := env.svc.ConsumeVerification(ctx, token)
	require.NoError(t, err)

	require.NoError(t, env.svc.ResendVerification(ctx, "1.2.3.4", "alice@example.com"))
	assert.Equal(t, token, env.notifier.verificationToken("alice@example.com"))
}

func TestResendVerificationRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.svc.ResendVerification(ctx, "1.2.3.4", "alice@example.com"))
	}
	assert.ErrorIs(t, env.svc.ResendVerification(ctx, "1.2.3.4", "alice@example.com"), domain.ErrRateLimited)
}

func TestResendVerificationDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	env.notifier.fail = true

	err := env.svc.RequestVerification(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

	_, err = env.svc.ConsumeVerification(ctx, env.notifier.verificationToken("alice@example.com"))
	assert.NoError(t, err, "the issued token stays consumable")
}

func TestResendVerificationKeepsConcurrentVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")
	token := env.notifier.verificationToken("alice@example.com")

	env.between.interleave(func() {
		_, err := env.svc.ConsumeVerification(ctx, token)
		require.NoError(t, err)
	})
	require.NoError(t, env.svc.ResendVerification(ctx, "1.2.3.4", "alice@example.com"))

	stored, err := env.accounts.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationTokenHash)
	assert.Equal(t, token, env.notifier.verificationToken("alice@example.com"), "no new token mailed")
}
