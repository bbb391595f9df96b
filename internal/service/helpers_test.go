package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/member-directory/internal/clock"
	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/ratelimit"
	"github.com/spec-kit/member-directory/internal/repository"
)

var testNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu           sync.Mutex
	fail         bool
	verification map[string]string
	reset        map[string]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{verification: map[string]string{}, reset: map[string]string{}}
}

func (n *fakeNotifier) SendVerification(_ context.Context, account *domain.Account, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification[account.Identity] = token
	return !n.fail
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, account *domain.Account, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[account.Identity] = token
	return !n.fail
}

func (n *fakeNotifier) verificationToken(identity string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification[identity]
}

func (n *fakeNotifier) resetToken(identity string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[identity]
}

// interleavingRepository runs a queued mutation right after the next
// FindByIdentity returns, between the service's read and its write.
type interleavingRepository struct {
	repository.AccountRepository
	mu    sync.Mutex
	after func()
}

func (r *interleavingRepository) interleave(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = fn
}

func (r *interleavingRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Account, error) {
	account, err := r.AccountRepository.FindByIdentity(ctx, identity)
	r.mu.Lock()
	fn := r.after
	r.after = nil
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	return account, err
}

type testEnv struct {
	svc      *AuthService
	accounts repository.AccountRepository
	between  *interleavingRepository
	notifier *fakeNotifier
	clock    *clock.Manual
	counter  *ratelimit.MemoryCounter
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{DefaultLanding: "/dashboard"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 60,
			VerificationTTLHours:    48,
			BcryptCost:              bcrypt.MinCost,
		},
		RateLimit: config.RateLimitConfig{
			GlobalPerDay:                200,
			GlobalPerHour:               50,
			LoginPerMinute:              5,
			PasswordResetPerMinute:      3,
			VerificationResendPerMinute: 3,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	clk := clock.NewManual(testNow)
	accounts := &interleavingRepository{AccountRepository: repository.NewMemoryAccountRepository()}
	notifier := newFakeNotifier()
	counter := ratelimit.NewMemoryCounter(clk)
	guard := ratelimit.NewGuard(counter, ratelimit.PolicyFromConfig(cfg.RateLimit), ratelimit.GuardOptions{})

	svc := NewAuthService(cfg, AuthDependencies{
		Accounts: accounts,
		Notifier: notifier,
		Limiter:  guard,
		Clock:    clk,
	})
	return &testEnv{svc: svc, accounts: accounts, between: accounts, notifier: notifier, clock: clk, counter: counter}
}

func (e *testEnv) register(t *testing.T, identity, password string) *domain.Account {
	t.Helper()
	account, err := e.svc.Register(context.Background(), RegisterInput{
		Identity:     identity,
		Password:     password,
		Confirmation: password,
		Kind:         domain.AccountKindMember,
		Profile:      domain.Profile{FullName: "Test Member"},
	})
	if err != nil {
		t.Fatalf("register %s: %v", identity, err)
	}
	return account
}

func (e *testEnv) admin(t *testing.T, identity string) *domain.Account {
	t.Helper()
	account, err := e.svc.CreateAdmin(context.Background(), identity, "AdminPass1", "Admin")
	if err != nil {
		t.Fatalf("create admin %s: %v", identity, err)
	}
	return account
}
