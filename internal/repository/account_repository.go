package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/member-directory/internal/domain"
)

// DefaultPageSize is used when a listing filter leaves PerPage unset.
const DefaultPageSize = 20

// AccountFilter narrows listings. Nil fields do not filter.
type AccountFilter struct {
	Kind     *domain.AccountKind
	IsActive *bool
	IsAdmin  *bool
	Verified *bool
	Page     int
	PerPage  int
}

// Offset returns the row offset for the filter's page.
func (f AccountFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size.
func (f AccountFilter) Limit() int {
	if f.PerPage <= 0 {
		return DefaultPageSize
	}
	return f.PerPage
}

// AccountRepository defines persistence access for account records.
//
// Find methods return domain.ErrAccountNotFound when no record matches.
// Token lookups take the stored digest of the token. Every mutation is a
// single conditional update of the named columns; a mutation whose condition
// no longer holds also returns domain.ErrAccountNotFound.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByIdentity(ctx context.Context, identity string) (*domain.Account, error)
	FindByVerificationToken(ctx context.Context, digest string) (*domain.Account, error)
	FindByResetToken(ctx context.Context, digest string) (*domain.Account, error)

	// ConsumeVerificationToken marks the holder of an unexpired digest verified
	// and clears the token in one mutation.
	ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*domain.Account, error)
	// ConsumeResetToken replaces the credential of the holder of an unexpired
	// digest and clears the reset token in one mutation.
	ConsumeResetToken(ctx context.Context, digest string, now time.Time, credentialHash string) (*domain.Account, error)

	// IssueResetToken replaces the reset token pair only.
	IssueResetToken(ctx context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error)
	// IssueVerificationToken replaces the verification token pair of an
	// unverified account.
	IssueVerificationToken(ctx context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error)
	// ChangeCredential swaps the credential hash if it still equals oldHash.
	ChangeCredential(ctx context.Context, identity, oldHash, newHash string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, identity string, profile domain.Profile) (*domain.Account, error)

	SetAdmin(ctx context.Context, identity string) (*domain.Account, error)
	ToggleActive(ctx context.Context, identity string) (*domain.Account, error)

	List(ctx context.Context, filter AccountFilter) ([]*domain.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)
	// CountUniversityCountries counts distinct non-empty university countries
	// among matching accounts.
	CountUniversityCountries(ctx context.Context, filter AccountFilter) (int, error)
}

// DBTX is the subset of pgx used by the Postgres repositories; *pgxpool.Pool
// and pgx.Tx both satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
