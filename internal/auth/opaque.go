package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/spec-kit/member-directory/internal/clock"
	"github.com/spec-kit/member-directory/internal/domain"
)

const opaqueTokenBytes = 32

const (
	DefaultResetTTL        = time.Hour
	DefaultVerificationTTL = 48 * time.Hour
)

// IssuedToken is a freshly generated opaque token. Only Digest is persisted.
type IssuedToken struct {
	Token     string
	Digest    string
	ExpiresAt time.Time
}

// TokenIssuer generates single-use tokens for verification and reset flows.
type TokenIssuer struct {
	rand            io.Reader
	clock           clock.Clock
	resetTTL        time.Duration
	verificationTTL time.Duration
}

// NewTokenIssuer builds an issuer. A nil random source means crypto/rand.
func NewTokenIssuer(random io.Reader, clk clock.Clock, resetTTL, verificationTTL time.Duration) *TokenIssuer {
	if random == nil {
		random = rand.Reader
	}
	if clk == nil {
		clk = clock.System()
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	if verificationTTL <= 0 {
		verificationTTL = DefaultVerificationTTL
	}
	return &TokenIssuer{rand: random, clock: clk, resetTTL: resetTTL, verificationTTL: verificationTTL}
}

// IssueOpaqueToken returns 32 random bytes encoded as unpadded base64url.
func (i *TokenIssuer) IssueOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IssueReset issues a reset token expiring resetTTL from now.
func (i *TokenIssuer) IssueReset() (IssuedToken, error) {
	return i.issue(i.resetTTL)
}

// IssueVerification issues an email verification token.
func (i *TokenIssuer) IssueVerification() (IssuedToken, error) {
	return i.issue(i.verificationTTL)
}

func (i *TokenIssuer) issue(ttl time.Duration) (IssuedToken, error) {
	token, err := i.IssueOpaqueToken()
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     token,
		Digest:    Digest(token),
		ExpiresAt: i.clock.Now().Add(ttl),
	}, nil
}

// IsResetTokenValid reports whether supplied matches the account's pending,
// unexpired reset token.
func (i *TokenIssuer) IsResetTokenValid(account *domain.Account, supplied string) bool {
	if account == nil {
		return false
	}
	return i.valid(account.ResetTokenHash, account.ResetTokenExpiresAt, supplied)
}

// IsVerificationTokenValid reports whether supplied matches the account's
// unexpired verification token.
func (i *TokenIssuer) IsVerificationTokenValid(account *domain.Account, supplied string) bool {
	if account == nil {
		return false
	}
	return i.valid(account.VerificationTokenHash, account.VerificationTokenExpiresAt, supplied)
}

func (i *TokenIssuer) valid(storedDigest *string, expiresAt *time.Time, supplied string) bool {
	if storedDigest == nil || expiresAt == nil || supplied == "" {
		return false
	}
	if i.clock.Now().After(*expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*storedDigest), []byte(Digest(supplied))) == 1
}

// Now exposes the issuer's clock for callers that compare against stored expiries.
func (i *TokenIssuer) Now() time.Time {
	return i.clock.Now()
}

// Digest returns the hex SHA-256 of a token, the form stored on records.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
