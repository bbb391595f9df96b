package service

import (
	"context"

	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/repository"
)

// DirectoryService serves the public directory, own-profile edits and the
// admin account listing.
type DirectoryService struct {
	accounts repository.AccountRepository
}

// NewDirectoryService builds the service.
func NewDirectoryService(accounts repository.AccountRepository) *DirectoryService {
	return &DirectoryService{accounts: accounts}
}

// Page is one page of accounts.
type Page struct {
	Accounts []*domain.Account
	Page     int
	PerPage  int
	Total    int
}

// PublicStats summarizes the directory for visitors.
type PublicStats struct {
	TotalMembers     int `json:"total_members"`
	UniqueCountries  int `json:"unique_countries"`
	VerifiedPercent  int `json:"success_rate"`
	VerifiedAccounts int `json:"verified_members"`
}

// AdminStats summarizes all accounts.
type AdminStats struct {
	TotalAccounts  int `json:"total_users"`
	ActiveAccounts int `json:"active_users"`
	Members        int `json:"members"`
	Companies      int `json:"companies"`
	Verified       int `json:"verified"`
}

// ListPublic lists active non-admin accounts of kind.
func (s *DirectoryService) ListPublic(ctx context.Context, kind domain.AccountKind, page, perPage int) (*Page, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidAccountKind
	}
	return s.list(ctx, publicFilter(&kind, page, perPage))
}

// PublicProfile returns an active non-admin account.
func (s *DirectoryService) PublicProfile(ctx context.Context, identity string) (*domain.Account, error) {
	account, err := s.accounts.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !account.IsActive || account.IsAdmin {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// PublicStats counts visible members and how many of them verified.
func (s *DirectoryService) PublicStats(ctx context.Context) (*PublicStats, error) {
	filter := publicFilter(nil, 0, 0)
	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	countries, err := s.accounts.CountUniversityCountries(ctx, filter)
	if err != nil {
		return nil, err
	}
	verified := true
	filter.Verified = &verified
	verifiedCount, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &PublicStats{TotalMembers: total, UniqueCountries: countries, VerifiedAccounts: verifiedCount}
	if total > 0 {
		stats.VerifiedPercent = (verifiedCount*100 + total/2) / total
	}
	return stats, nil
}

// Account loads any account by identity.
func (s *DirectoryService) Account(ctx context.Context, identity string) (*domain.Account, error) {
	return s.accounts.FindByIdentity(ctx, identity)
}

// UpdateProfile replaces the caller's profile. Fields belonging to the other
// account kind are dropped.
func (s *DirectoryService) UpdateProfile(ctx context.Context, identity string, profile domain.Profile) (*domain.Account, error) {
	account, err := s.accounts.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.accounts.UpdateProfile(ctx, account.Identity, profile.ForKind(account.Kind))
}

// AdminList pages through every account, newest first.
func (s *DirectoryService) AdminList(ctx context.Context, page, perPage int) (*Page, error) {
	return s.list(ctx, repository.AccountFilter{Page: page, PerPage: perPage})
}

// AdminStats counts accounts by state and kind.
func (s *DirectoryService) AdminStats(ctx context.Context) (*AdminStats, error) {
	active, verified := true, true
	member, company := domain.AccountKindMember, domain.AccountKindCompany

	var stats AdminStats
	counts := []struct {
		dst    *int
		filter repository.AccountFilter
	}{
		{&stats.TotalAccounts, repository.AccountFilter{}},
		{&stats.ActiveAccounts, repository.AccountFilter{IsActive: &active}},
		{&stats.Members, repository.AccountFilter{Kind: &member}},
		{&stats.Companies, repository.AccountFilter{Kind: &company}},
		{&stats.Verified, repository.AccountFilter{Verified: &verified}},
	}
	for _, c := range counts {
		n, err := s.accounts.Count(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return &stats, nil
}

func (s *DirectoryService) list(ctx context.Context, filter repository.AccountFilter) (*Page, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.accounts.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	return &Page{Accounts: accounts, Page: page, PerPage: filter.Limit(), Total: total}, nil
}

func publicFilter(kind *domain.AccountKind, page, perPage int) repository.AccountFilter {
	active, admin := true, false
	return repository.AccountFilter{Kind: kind, IsActive: &active, IsAdmin: &admin, Page: page, PerPage: perPage}
}
