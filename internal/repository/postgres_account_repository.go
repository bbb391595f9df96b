package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/member-directory/internal/domain"
)

const uniqueViolation = "23505"

const accountColumns = `identity, credential_hash, kind, is_active, is_admin, is_verified,
        verification_token_hash, verification_token_expires_at,
        reset_token_hash, reset_token_expires_at,
        profile, created_at, updated_at`

type accountRepository struct {
	db DBTX
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (identity, credential_hash, kind, is_active, is_admin, is_verified,
            verification_token_hash, verification_token_expires_at,
            reset_token_hash, reset_token_expires_at, profile, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`

	_, err := r.db.Exec(ctx, query,
		account.Identity,
		account.CredentialHash,
		account.Kind,
		account.IsActive,
		account.IsAdmin,
		account.IsVerified,
		account.VerificationTokenHash,
		account.VerificationTokenExpiresAt,
		account.ResetTokenHash,
		account.ResetTokenExpiresAt,
		account.Profile,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "accounts_pkey" {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("db error: %w", err)
	}
	account.UpdatedAt = account.CreatedAt
	return nil
}

func (r *accountRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity=$1`
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity)))
}

func (r *accountRepository) FindByVerificationToken(ctx context.Context, digest string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE verification_token_hash=$1`
	return scanAccount(r.db.QueryRow(ctx, query, digest))
}

func (r *accountRepository) FindByResetToken(ctx context.Context, digest string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE reset_token_hash=$1`
	return scanAccount(r.db.QueryRow(ctx, query, digest))
}

func (r *accountRepository) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts SET is_verified=TRUE, verification_token_hash=NULL,
            verification_token_expires_at=NULL, updated_at=NOW()
        WHERE verification_token_hash=$1 AND verification_token_expires_at >= $2
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, digest, now))
}

func (r *accountRepository) ConsumeResetToken(ctx context.Context, digest string, now time.Time, credentialHash string) (*domain.Account, error) {
	query := `
        UPDATE accounts SET credential_hash=$3, reset_token_hash=NULL,
            reset_token_expires_at=NULL, updated_at=NOW()
        WHERE reset_token_hash=$1 AND reset_token_expires_at >= $2
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, digest, now, credentialHash))
}

func (r *accountRepository) IssueResetToken(ctx context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts SET reset_token_hash=$2, reset_token_expires_at=$3, updated_at=NOW()
        WHERE identity=$1
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity), digest, expiresAt))
}

func (r *accountRepository) IssueVerificationToken(ctx context.Context, identity, digest string, expiresAt time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts SET verification_token_hash=$2, verification_token_expires_at=$3, updated_at=NOW()
        WHERE identity=$1 AND is_verified=FALSE
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity), digest, expiresAt))
}

func (r *accountRepository) ChangeCredential(ctx context.Context, identity, oldHash, newHash string) (*domain.Account, error) {
	query := `
        UPDATE accounts SET credential_hash=$3, updated_at=NOW()
        WHERE identity=$1 AND credential_hash=$2
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity), oldHash, newHash))
}

func (r *accountRepository) UpdateProfile(ctx context.Context, identity string, profile domain.Profile) (*domain.Account, error) {
	query := `
        UPDATE accounts SET profile=$2, updated_at=NOW()
        WHERE identity=$1
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity), profile))
}

func (r *accountRepository) SetAdmin(ctx context.Context, identity string) (*domain.Account, error) {
	query := `
        UPDATE accounts SET is_admin=TRUE, updated_at=NOW()
        WHERE identity=$1
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity)))
}

func (r *accountRepository) ToggleActive(ctx context.Context, identity string) (*domain.Account, error) {
	query := `
        UPDATE accounts SET is_active=NOT is_active, updated_at=NOW()
        WHERE identity=$1
        RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, domain.NormalizeIdentity(identity)))
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]*domain.Account, error) {
	where, args := filterClause(filter)
	args = append(args, filter.Limit(), filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM accounts %s ORDER BY created_at DESC, identity LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) Count(ctx context.Context, filter AccountFilter) (int, error) {
	where, args := filterClause(filter)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *accountRepository) CountUniversityCountries(ctx context.Context, filter AccountFilter) (int, error) {
	where, args := filterClause(filter)
	cond := "COALESCE(profile->>'university_country', '') <> ''"
	if where == "" {
		where = "WHERE " + cond
	} else {
		where += " AND " + cond
	}
	var count int
	query := `SELECT COUNT(DISTINCT profile->>'university_country') FROM accounts ` + where
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func filterClause(filter AccountFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if filter.Kind != nil {
		add("kind", string(*filter.Kind))
	}
	if filter.IsActive != nil {
		add("is_active", *filter.IsActive)
	}
	if filter.IsAdmin != nil {
		add("is_admin", *filter.IsAdmin)
	}
	if filter.Verified != nil {
		add("is_verified", *filter.Verified)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.Identity,
		&account.CredentialHash,
		&account.Kind,
		&account.IsActive,
		&account.IsAdmin,
		&account.IsVerified,
		&account.VerificationTokenHash,
		&account.VerificationTokenExpiresAt,
		&account.ResetTokenHash,
		&account.ResetTokenExpiresAt,
		&account.Profile,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &account, nil
}

func mapNoRows(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
