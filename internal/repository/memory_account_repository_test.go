package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/member-directory/internal/domain"
)

func newTestAccount(identity string, kind domain.AccountKind, createdAt time.Time) *domain.Account {
	account := domain.NewAccount(identity, kind, domain.Profile{FullName: identity}, createdAt)
	account.CredentialHash = "hash"
	return account
}

func TestMemoryCreate_DuplicateIdentity(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newTestAccount("Alice@Example.com", domain.AccountKindMember, now)))

	err := repo.Create(ctx, newTestAccount("alice@example.com ", domain.AccountKindCompany, now))
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	got, err := repo.FindByIdentity(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Identity)
	assert.Equal(t, domain.AccountKindMember, got.Kind)
}

func TestMemoryCreate_RejectsEmptyCredential(t *testing.T) {
	repo := NewMemoryAccountRepository()
	account := domain.NewAccount("bob@example.com", domain.AccountKindMember, domain.Profile{}, time.Now())
	assert.Error(t, repo.Create(context.Background(), account))
}

func TestMemoryCreate_ConcurrentSameIdentity(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	const attempts = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		wins, dups int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newTestAccount("race@example.com", domain.AccountKindMember, now))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicateIdentity):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, dups)
}

func TestMemoryFindReturnsCopies(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestAccount("carol@example.com", domain.AccountKindMember, time.Now())))

	got, err := repo.FindByIdentity(ctx, "carol@example.com")
	require.NoError(t, err)
	got.IsVerified = true

	again, err := repo.FindByIdentity(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.False(t, again.IsVerified)
}

func TestMemoryConsumeVerificationToken(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	account := newTestAccount("dave@example.com", domain.AccountKindMember, now)
	account.IssueVerification("digest-1", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, account))

	t.Run("expired token is not consumed", func(t *testing.T) {
		_, err := repo.ConsumeVerificationToken(ctx, "digest-1", now.Add(2*time.Hour))
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)

		stored, err := repo.FindByVerificationToken(ctx, "digest-1")
		require.NoError(t, err)
		assert.False(t, stored.IsVerified)
	})

	t.Run("valid token is consumed once", func(t *testing.T) {
		consumed, err := repo.ConsumeVerificationToken(ctx, "digest-1", now)
		require.NoError(t, err)
		assert.True(t, consumed.IsVerified)
		assert.Nil(t, consumed.VerificationTokenHash)
		assert.Nil(t, consumed.VerificationTokenExpiresAt)

		_, err = repo.ConsumeVerificationToken(ctx, "digest-1", now)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestMemoryConsumeResetToken_Concurrent(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	account := newTestAccount("erin@example.com", domain.AccountKindMember, now)
	account.IssueReset("reset-digest", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, account))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeResetToken(ctx, "reset-digest", now, "new-hash"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	stored, err := repo.FindByIdentity(ctx, "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.CredentialHash)
	assert.False(t, stored.HasPendingReset())
	assert.Nil(t, stored.ResetTokenExpiresAt)
}

func TestMemoryTargetedUpdatesKeepOtherColumns(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.Create(ctx, newTestAccount("frank@example.com", domain.AccountKindCompany, time.Now())))

	_, err := repo.SetAdmin(ctx, "frank@example.com")
	require.NoError(t, err)
	_, err = repo.ToggleActive(ctx, "frank@example.com")
	require.NoError(t, err)

	_, err = repo.IssueResetToken(ctx, "frank@example.com", "reset-digest", expires)
	require.NoError(t, err)
	updated, err := repo.UpdateProfile(ctx, "frank@example.com", domain.Profile{CompanyName: "Frank Co"})
	require.NoError(t, err)

	assert.True(t, updated.IsAdmin)
	assert.False(t, updated.IsActive)
	assert.Equal(t, domain.AccountKindCompany, updated.Kind)
	assert.Equal(t, "Frank Co", updated.Profile.CompanyName)
	assert.True(t, updated.HasPendingReset())
	assert.Equal(t, "hash", updated.CredentialHash)

	_, err = repo.UpdateProfile(ctx, "ghost@example.com", domain.Profile{})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = repo.IssueResetToken(ctx, "ghost@example.com", "d", expires)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMemoryIssueVerificationTokenSkipsVerified(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC()
	account := newTestAccount("hana@example.com", domain.AccountKindMember, time.Now())
	account.IssueVerification("first", expires)
	require.NoError(t, repo.Create(ctx, account))

	issued, err := repo.IssueVerificationToken(ctx, "hana@example.com", "second", expires)
	require.NoError(t, err)
	assert.Equal(t, "second", *issued.VerificationTokenHash)

	_, err = repo.ConsumeVerificationToken(ctx, "second", time.Now())
	require.NoError(t, err)

	_, err = repo.IssueVerificationToken(ctx, "hana@example.com", "third", expires)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	stored, err := repo.FindByIdentity(ctx, "hana@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationTokenHash)
}

func TestMemoryChangeCredentialComparesOldHash(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestAccount("ivan@example.com", domain.AccountKindMember, time.Now())))

	changed, err := repo.ChangeCredential(ctx, "ivan@example.com", "hash", "hash-2")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", changed.CredentialHash)

	_, err = repo.ChangeCredential(ctx, "ivan@example.com", "hash", "hash-3")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	stored, err := repo.FindByIdentity(ctx, "ivan@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", stored.CredentialHash)
}

func TestMemoryToggleActive(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestAccount("gina@example.com", domain.AccountKindMember, time.Now())))

	toggled, err := repo.ToggleActive(ctx, "gina@example.com")
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = repo.ToggleActive(ctx, "gina@example.com")
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = repo.ToggleActive(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMemoryListAndCount(t *testing.T) {
	repo := NewMemoryAccountRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, identity := range []string{"m1@example.com", "m2@example.com", "m3@example.com"} {
		require.NoError(t, repo.Create(ctx, newTestAccount(identity, domain.AccountKindMember, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newTestAccount("c1@example.com", domain.AccountKindCompany, base)))

	member := domain.AccountKindMember
	listed, err := repo.List(ctx, AccountFilter{Kind: &member, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "m3@example.com", listed[0].Identity)
	assert.Equal(t, "m2@example.com", listed[1].Identity)

	page2, err := repo.List(ctx, AccountFilter{Kind: &member, PerPage: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "m1@example.com", page2[0].Identity)

	count, err := repo.Count(ctx, AccountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
