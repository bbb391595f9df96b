package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/member-directory/internal/domain"
)

var errEmptyCredential = errors.New("credential hash required")

// memoryAccountRepository keeps accounts in process memory. It backs
// development runs without POSTGRES_DSN and the service tests.
type memoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	now      func() time.Time
}

// NewMemoryAccountRepository returns an empty in-memory repository.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{
		accounts: make(map[string]*domain.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.CredentialHash == "" {
		return errEmptyCredential
	}
	key := domain.NormalizeIdentity(account.Identity)
	if _, exists := r.accounts[key]; exists {
		return domain.ErrDuplicateIdentity
	}
	account.Identity = key
	account.UpdatedAt = account.CreatedAt
	r.accounts[key] = cloneAccount(account)
	return nil
}

func (r *memoryAccountRepository) FindByIdentity(_ context.Context, identity string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[domain.NormalizeIdentity(identity)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (r *memoryAccountRepository) FindByVerificationToken(_ context.Context, digest string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if account := r.byVerificationDigest(digest); account != nil {
		return cloneAccount(account), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memoryAccountRepository) FindByResetToken(_ context.Context, digest string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if account := r.byResetDigest(digest); account != nil {
		return cloneAccount(account), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memoryAccountRepository) ConsumeVerificationToken(_ context.Context, digest string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.byVerificationDigest(digest)
	if account == nil || account.VerificationTokenExpiresAt == nil || now.After(*account.VerificationTokenExpiresAt) {
		return nil, domain.ErrAccountNotFound
	}
	account.MarkVerified()
	account.UpdatedAt = r.now()
	return cloneAccount(account), nil
}

func (r *memoryAccountRepository) ConsumeResetToken(_ context.Context, digest string, now time.Time, credentialHash string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.byResetDigest(digest)
	if account == nil || account.ResetTokenExpiresAt == nil || now.After(*account.ResetTokenExpiresAt) {
		return nil, domain.ErrAccountNotFound
	}
	account.CredentialHash = credentialHash
	account.ClearReset()
	account.UpdatedAt = r.now()
	return cloneAccount(account), nil
}

func (r *memoryAccountRepository) IssueResetToken(_ context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error) {
	return r.mutate(identity, nil, func(a *domain.Account) { a.IssueReset(digest, expiresAt) })
}

func (r *memoryAccountRepository) IssueVerificationToken(_ context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error) {
	unverified := func(a *domain.Account) bool { return !a.IsVerified }
	return r.mutate(identity, unverified, func(a *domain.Account) { a.IssueVerification(digest, expiresAt) })
}

func (r *memoryAccountRepository) ChangeCredential(_ context.Context, identity, oldHash, newHash string) (*domain.Account, error) {
	current := func(a *domain.Account) bool { return a.CredentialHash == oldHash }
	return r.mutate(identity, current, func(a *domain.Account) { a.CredentialHash = newHash })
}

func (r *memoryAccountRepository) UpdateProfile(_ context.Context, identity string, profile domain.Profile) (*domain.Account, error) {
	return r.mutate(identity, nil, func(a *domain.Account) { a.Profile = profile })
}

func (r *memoryAccountRepository) SetAdmin(_ context.Context, identity string) (*domain.Account, error) {
	return r.mutate(identity, nil, func(a *domain.Account) { a.IsAdmin = true })
}

func (r *memoryAccountRepository) ToggleActive(_ context.Context, identity string) (*domain.Account, error) {
	return r.mutate(identity, nil, func(a *domain.Account) { a.IsActive = !a.IsActive })
}

func (r *memoryAccountRepository) List(_ context.Context, filter AccountFilter) ([]*domain.Account, error) {
	r.mu.RLock()
	matched := r.matching(filter)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Identity < matched[j].Identity
	})

	start := filter.Offset()
	if start >= len(matched) {
		return nil, nil
	}
	end := start + filter.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *memoryAccountRepository) Count(_ context.Context, filter AccountFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(filter)), nil
}

func (r *memoryAccountRepository) CountUniversityCountries(_ context.Context, filter AccountFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	countries := make(map[string]struct{})
	for _, account := range r.matching(filter) {
		if c := account.Profile.UniversityCountry; c != "" {
			countries[c] = struct{}{}
		}
	}
	return len(countries), nil
}

// mutate applies fn under the write lock when cond (if any) holds.
func (r *memoryAccountRepository) mutate(identity string, cond func(*domain.Account) bool, fn func(*domain.Account)) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[domain.NormalizeIdentity(identity)]
	if !ok || (cond != nil && !cond(account)) {
		return nil, domain.ErrAccountNotFound
	}
	fn(account)
	account.UpdatedAt = r.now()
	return cloneAccount(account), nil
}

// matching must be called with the lock held; it returns clones.
func (r *memoryAccountRepository) matching(filter AccountFilter) []*domain.Account {
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		if filter.Kind != nil && account.Kind != *filter.Kind {
			continue
		}
		if filter.IsActive != nil && account.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsAdmin != nil && account.IsAdmin != *filter.IsAdmin {
			continue
		}
		if filter.Verified != nil && account.IsVerified != *filter.Verified {
			continue
		}
		out = append(out, cloneAccount(account))
	}
	return out
}

func (r *memoryAccountRepository) byVerificationDigest(digest string) *domain.Account {
	for _, account := range r.accounts {
		if account.VerificationTokenHash != nil && *account.VerificationTokenHash == digest {
			return account
		}
	}
	return nil
}

func (r *memoryAccountRepository) byResetDigest(digest string) *domain.Account {
	for _, account := range r.accounts {
		if account.ResetTokenHash != nil && *account.ResetTokenHash == digest {
			return account
		}
	}
	return nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.VerificationTokenHash != nil {
		v := *a.VerificationTokenHash
		c.VerificationTokenHash = &v
	}
	if a.VerificationTokenExpiresAt != nil {
		v := *a.VerificationTokenExpiresAt
		c.VerificationTokenExpiresAt = &v
	}
	if a.ResetTokenHash != nil {
		v := *a.ResetTokenHash
		c.ResetTokenHash = &v
	}
	if a.ResetTokenExpiresAt != nil {
		v := *a.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &v
	}
	return &c
}
