package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/repository"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.register(t, " Alice@Example.com ", "Secret123")

	assert.Equal(t, "alice@example.com", account.Identity)
	assert.False(t, account.IsVerified)
	assert.False(t, account.IsAdmin)
	assert.True(t, account.IsActive)

	stored, err := env.accounts.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", stored.CredentialHash)
	assert.True(t, stored.VerifyCredential(env.svc.hasher, "Secret123"))
	assert.False(t, stored.VerifyCredential(env.svc.hasher, "secret123"))

	token := env.notifier.verificationToken("alice@example.com")
	require.NotEmpty(t, token)
	require.NotNil(t, stored.VerificationTokenHash)
	assert.Equal(t, auth.Digest(token), *stored.VerificationTokenHash)
	assert.Equal(t, testNow.Add(48*time.Hour), *stored.VerificationTokenExpiresAt)
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{
			name: "password mismatch",
			in:   RegisterInput{Identity: "bob@example.com", Password: "Secret123", Confirmation: "Secret124", Kind: domain.AccountKindMember},
			want: domain.ErrPasswordMismatch,
		},
		{
			name: "duplicate ignoring case",
			in:   RegisterInput{Identity: "ALICE@example.com", Password: "x", Confirmation: "x", Kind: domain.AccountKindMember},
			want: domain.ErrDuplicateIdentity,
		},
		{
			name: "unknown kind",
			in:   RegisterInput{Identity: "carol@example.com", Password: "x", Confirmation: "x", Kind: "admin"},
			want: domain.ErrInvalidAccountKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := env.svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, account)
		})
	}

	_, err := env.accounts.FindByIdentity(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRegisterAcceptsEmptyPassword(t *testing.T) {
	env := newTestEnv(t)
	account := env.register(t, "empty@example.com", "")
	assert.True(t, account.VerifyCredential(env.svc.hasher, ""))
	assert.False(t, account.VerifyCredential(env.svc.hasher, " "))
}

func TestRegisterConcurrentSameIdentity(t *testing.T) {
	env := newTestEnv(t)
	in := RegisterInput{Identity: "race@example.com", Password: "Secret123", Confirmation: "Secret123", Kind: domain.AccountKindMember}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Register(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
		dup++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestRegisterDeliveryFailureKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true
	ctx := context.Background()

	account, err := env.svc.Register(ctx, RegisterInput{
		Identity: "dana@example.com", Password: "Secret123", Confirmation: "Secret123", Kind: domain.AccountKindCompany,
		Profile: domain.Profile{CompanyName: "Dana Corp", FullName: "ignored"},
	})
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
	require.NotNil(t, account)
	assert.Equal(t, "Dana Corp", account.Profile.CompanyName)
	assert.Empty(t, account.Profile.FullName)

	verified, err := env.svc.ConsumeVerification(ctx, env.notifier.verificationToken("dana@example.com"))
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	result, err := env.svc.Login(ctx, LoginInput{ClientID: "1.1.1.1", Identity: "ALICE@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.Account.Identity)
	assert.Equal(t, "/dashboard", result.Redirect)
	assert.NotEmpty(t, result.Token)

	session, err := env.svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.Identity)

	result, err = env.svc.Login(ctx, LoginInput{ClientID: "1.1.1.2", Identity: "alice@example.com", Password: "Secret123", Next: "/members?page=2"})
	require.NoError(t, err)
	assert.Equal(t, "/members?page=2", result.Redirect)

	result, err = env.svc.Login(ctx, LoginInput{ClientID: "1.1.1.3", Identity: "alice@example.com", Password: "Secret123", Next: "https://evil.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", result.Redirect)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	_, wrongPassword := env.svc.Login(ctx, LoginInput{ClientID: "a", Identity: "alice@example.com", Password: "nope"})
	_, unknown := env.svc.Login(ctx, LoginInput{ClientID: "b", Identity: "nobody@example.com", Password: "Secret123"})

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknown.Error())
	assert.Equal(t, "invalid email or password", unknown.Error())
}

func TestLoginInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "root@example.com")
	env.register(t, "alice@example.com", "Secret123")

	_, err := env.svc.ToggleActive(ctx, "root@example.com", "alice@example.com")
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, LoginInput{ClientID: "a", Identity: "alice@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	_, err = env.svc.Login(ctx, LoginInput{ClientID: "a", Identity: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "inactive state is only revealed to the credential holder")
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	for i := 0; i < 5; i++ {
		_, err := env.svc.Login(ctx, LoginInput{ClientID: "9.9.9.9", Identity: "alice@example.com", Password: "guess"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err := env.svc.Login(ctx, LoginInput{ClientID: "9.9.9.9", Identity: "alice@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = env.svc.Login(ctx, LoginInput{ClientID: "8.8.8.8", Identity: "alice@example.com", Password: "Secret123"})
	assert.NoError(t, err)

	env.clock.Advance(time.Minute)
	_, err = env.svc.Login(ctx, LoginInput{ClientID: "9.9.9.9", Identity: "alice@example.com", Password: "Secret123"})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Secret123")

	assert.ErrorIs(t, env.svc.ChangePassword(ctx, "alice@example.com", "wrong", "NewPass456", "NewPass456"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, env.svc.ChangePassword(ctx, "alice@example.com", "Secret123", "NewPass456", "NewPass457"), domain.ErrPasswordMismatch)
	require.NoError(t, env.svc.ChangePassword(ctx, "alice@example.com", "Secret123", "NewPass456", "NewPass456"))

	_, err := env.svc.Login(ctx, LoginInput{ClientID: "a", Identity: "alice@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, LoginInput{ClientID: "a", Identity: "alice@example.com", Password: "NewPass456"})
	assert.NoError(t, err)
}

func TestElevateToAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "root@example.com")
	env.register(t, "alice@example.com", "Secret123")
	env.register(t, "bob@example.com", "Secret123")

	_, err := env.svc.ElevateToAdmin(ctx, "bob@example.com", "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.svc.ElevateToAdmin(ctx, "ghost@example.com", "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.svc.ElevateToAdmin(ctx, "root@example.com", "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	elevated, err := env.svc.ElevateToAdmin(ctx, "root@example.com", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, elevated.IsAdmin)

	// Elevation is one-way: later profile and credential writes keep it.
	_, err = NewDirectoryService(env.accounts).UpdateProfile(ctx, "alice@example.com", domain.Profile{FullName: "Alice A"})
	require.NoError(t, err)
	require.NoError(t, env.svc.ChangePassword(ctx, "alice@example.com", "Secret123", "NewPass456", "NewPass456"))
	reloaded, err := env.accounts.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin)

	_, err = env.svc.ElevateToAdmin(ctx, "alice@example.com", "bob@example.com")
	assert.NoError(t, err, "new admins can elevate others")
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "root@example.com")
	env.register(t, "alice@example.com", "Secret123")

	_, err := env.svc.ToggleActive(ctx, "root@example.com", "ROOT@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.svc.ToggleActive(ctx, "alice@example.com", "root@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	toggled, err := env.svc.ToggleActive(ctx, "root@example.com", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = env.svc.ToggleActive(ctx, "root@example.com", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestInactiveAdminCannotAct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "root@example.com")
	env.admin(t, "ops@example.com")
	env.register(t, "alice@example.com", "Secret123")

	_, err := env.svc.ToggleActive(ctx, "root@example.com", "ops@example.com")
	require.NoError(t, err)

	_, err = env.svc.ElevateToAdmin(ctx, "ops@example.com", "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.EnsureBootstrapAdmin(ctx, config.AdminConfig{BootstrapEmail: "admin@example.com"}))
	_, err := env.accounts.FindByIdentity(ctx, "admin@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	cfg := config.AdminConfig{BootstrapEmail: "admin@example.com", BootstrapPassword: "Bootstrap1", BootstrapName: "Admin User"}
	require.NoError(t, env.svc.EnsureBootstrapAdmin(ctx, cfg))
	admin, err := env.accounts.FindByIdentity(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsVerified)
	assert.True(t, admin.VerifyCredential(env.svc.hasher, "Bootstrap1"))

	cfg.BootstrapEmail = "second@example.com"
	require.NoError(t, env.svc.EnsureBootstrapAdmin(ctx, cfg))
	isAdmin := true
	count, err := env.accounts.Count(ctx, repository.AccountFilter{IsAdmin: &isAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnsureBootstrapAdminIdentityTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "admin@example.com", "Secret123")

	err := env.svc.EnsureBootstrapAdmin(ctx, config.AdminConfig{BootstrapEmail: "admin@example.com", BootstrapPassword: "Bootstrap1"})
	require.NoError(t, err)

	account, err := env.accounts.FindByIdentity(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.False(t, account.IsAdmin)
}
