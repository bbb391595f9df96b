package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Compare(h, p string) bool { return h == "h:"+p }

func TestNewAccountDefaults(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	a := NewAccount("  Alice@Example.COM ", AccountKindMember, Profile{FullName: "Alice"}, now)

	assert.Equal(t, "alice@example.com", a.Identity)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsAdmin)
	assert.False(t, a.IsVerified)
	assert.Equal(t, now, a.CreatedAt)
	assert.Nil(t, a.VerificationTokenHash)
	assert.Nil(t, a.ResetTokenHash)
}

func TestCredential(t *testing.T) {
	a := NewAccount("bob@example.com", AccountKindMember, Profile{}, time.Now())
	assert.False(t, a.VerifyCredential(plainHasher{}, ""))

	require.NoError(t, a.SetCredential(plainHasher{}, "Secret123"))
	assert.True(t, a.VerifyCredential(plainHasher{}, "Secret123"))
	assert.False(t, a.VerifyCredential(plainHasher{}, "secret123"))

	var missing *Account
	assert.False(t, missing.VerifyCredential(plainHasher{}, "Secret123"))
}

func TestTokenLifecycle(t *testing.T) {
	a := NewAccount("carol@example.com", AccountKindMember, Profile{}, time.Now())
	exp := time.Now().Add(time.Hour)

	a.IssueVerification("v1", exp)
	a.IssueVerification("v2", exp)
	require.NotNil(t, a.VerificationTokenHash)
	assert.Equal(t, "v2", *a.VerificationTokenHash)

	a.MarkVerified()
	assert.True(t, a.IsVerified)
	assert.Nil(t, a.VerificationTokenHash)
	assert.Nil(t, a.VerificationTokenExpiresAt)

	assert.False(t, a.HasPendingReset())
	a.IssueReset("r1", exp)
	assert.True(t, a.HasPendingReset())
	a.ClearReset()
	assert.False(t, a.HasPendingReset())
	assert.Nil(t, a.ResetTokenExpiresAt)
}

func TestDisplayNameAndProfileKind(t *testing.T) {
	company := NewAccount("hr@acme.example", AccountKindCompany, Profile{CompanyName: "Acme", FullName: "ignored"}, time.Now())
	assert.Equal(t, "Acme", company.DisplayName())

	anon := NewAccount("dave@example.com", AccountKindMember, Profile{}, time.Now())
	assert.Equal(t, "dave@example.com", anon.DisplayName())

	p := Profile{FullName: "Eve", University: "U", CompanyName: "Acme", Industry: "Tech", Bio: "hi"}
	member := p.ForKind(AccountKindMember)
	assert.Empty(t, member.CompanyName)
	assert.Equal(t, "Eve", member.FullName)

	asCompany := p.ForKind(AccountKindCompany)
	assert.Empty(t, asCompany.FullName)
	assert.Empty(t, asCompany.University)
	assert.Equal(t, "Acme", asCompany.CompanyName)
	assert.Equal(t, "hi", asCompany.Bio)

	assert.True(t, AccountKindCompany.Valid())
	assert.False(t, AccountKind("admin").Valid())
}
