package domain

import (
	"strings"
	"time"
)

// AccountKind is fixed at registration and never user-editable.
type AccountKind string

const (
	AccountKindMember  AccountKind = "member"
	AccountKindCompany AccountKind = "company"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	return k == AccountKindMember || k == AccountKindCompany
}

// Account is the durable record for a registered identity.
//
// Token fields hold SHA-256 digests of the issued tokens, never the tokens
// themselves. A token digest and its expiry are always set and cleared
// together.
type Account struct {
	Identity                   string
	CredentialHash             string
	Kind                       AccountKind
	IsActive                   bool
	IsAdmin                    bool
	IsVerified                 bool
	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time
	ResetTokenHash             *string
	ResetTokenExpiresAt        *time.Time
	Profile                    Profile
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// CredentialHasher computes and checks credential hashes.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Compare(hash, plaintext string) bool
}

// NewAccount builds an unverified, active, non-admin account.
func NewAccount(identity string, kind AccountKind, profile Profile, createdAt time.Time) *Account {
	return &Account{
		Identity:  NormalizeIdentity(identity),
		Kind:      kind,
		IsActive:  true,
		Profile:   profile,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NormalizeIdentity trims and lower-cases an email identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// SetCredential replaces the stored hash with a hash of plaintext.
func (a *Account) SetCredential(hasher CredentialHasher, plaintext string) error {
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	a.CredentialHash = hash
	return nil
}

// VerifyCredential reports whether plaintext matches the stored hash.
func (a *Account) VerifyCredential(hasher CredentialHasher, plaintext string) bool {
	if a == nil || a.CredentialHash == "" {
		return false
	}
	return hasher.Compare(a.CredentialHash, plaintext)
}

// IssueVerification records a verification token digest, replacing any prior one.
func (a *Account) IssueVerification(digest string, expiresAt time.Time) {
	a.VerificationTokenHash = &digest
	a.VerificationTokenExpiresAt = &expiresAt
}

// MarkVerified sets the verified flag and clears the verification token.
func (a *Account) MarkVerified() {
	a.IsVerified = true
	a.VerificationTokenHash = nil
	a.VerificationTokenExpiresAt = nil
}

// IssueReset records a reset token digest and its expiry, replacing any prior one.
func (a *Account) IssueReset(digest string, expiresAt time.Time) {
	a.ResetTokenHash = &digest
	a.ResetTokenExpiresAt = &expiresAt
}

// ClearReset removes the reset token and its expiry.
func (a *Account) ClearReset() {
	a.ResetTokenHash = nil
	a.ResetTokenExpiresAt = nil
}

// HasPendingReset reports whether a reset token is stored, expired or not.
func (a *Account) HasPendingReset() bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiresAt != nil
}

// DisplayName picks the most human-readable name for the account.
func (a *Account) DisplayName() string {
	switch {
	case a.Kind == AccountKindCompany && a.Profile.CompanyName != "":
		return a.Profile.CompanyName
	case a.Profile.FullName != "":
		return a.Profile.FullName
	default:
		return a.Identity
	}
}
