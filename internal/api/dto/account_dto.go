package dto

import (
	"time"

	"github.com/spec-kit/member-directory/internal/domain"
)

// AccountResponse is the account as shown to its owner and to admins.
type AccountResponse struct {
	Email                string         `json:"email"`
	Kind                 string         `json:"kind"`
	Name                 string         `json:"name"`
	IsActive             bool           `json:"is_active"`
	IsAdmin              bool           `json:"is_admin"`
	IsVerified           bool           `json:"is_verified"`
	PasswordResetPending bool           `json:"password_reset_pending"`
	Profile              domain.Profile `json:"profile"`
	CreatedAt            time.Time      `json:"created_at"`
}

// NewAccountResponse converts an account without its credential or tokens.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		Email:                a.Identity,
		Kind:                 string(a.Kind),
		Name:                 a.DisplayName(),
		IsActive:             a.IsActive,
		IsAdmin:              a.IsAdmin,
		IsVerified:           a.IsVerified,
		PasswordResetPending: a.HasPendingReset(),
		Profile:              a.Profile,
		CreatedAt:            a.CreatedAt,
	}
}

// PublicProfileResponse is a directory entry.
type PublicProfileResponse struct {
	Email      string         `json:"email"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	IsVerified bool           `json:"is_verified"`
	Profile    domain.Profile `json:"profile"`
	JoinedAt   time.Time      `json:"joined_at"`
}

// NewPublicProfileResponse converts an account for visitors.
func NewPublicProfileResponse(a *domain.Account) PublicProfileResponse {
	profile := a.Profile
	profile.Phone = ""
	return PublicProfileResponse{
		Email:      a.Identity,
		Kind:       string(a.Kind),
		Name:       a.DisplayName(),
		IsVerified: a.IsVerified,
		Profile:    profile,
		JoinedAt:   a.CreatedAt,
	}
}

// ProfileUpdateRequest replaces the editable profile of the caller.
type ProfileUpdateRequest struct {
	FullName          string `json:"full_name" validate:"max=120"`
	Phone             string `json:"phone" validate:"max=40"`
	Bio               string `json:"bio" validate:"max=2000"`
	University        string `json:"university" validate:"max=200"`
	UniversityCountry string `json:"university_country" validate:"max=100"`
	Major             string `json:"major" validate:"max=200"`
	StartDate         string `json:"start_date" validate:"omitempty,datetime=01-2006"`
	EndDate           string `json:"end_date" validate:"omitempty,datetime=01-2006"`
	IsCurrentStudent  bool   `json:"is_current_student"`
	CurrentCompany    string `json:"current_company" validate:"max=200"`
	CurrentPosition   string `json:"current_position" validate:"max=200"`
	LinkedInURL       string `json:"linkedin_url" validate:"omitempty,url"`
	InstagramURL      string `json:"instagram_url" validate:"omitempty,url"`
	XTwitterURL       string `json:"x_twitter_url" validate:"omitempty,url"`
	TelegramURL       string `json:"telegram_url" validate:"omitempty,url"`
	GitHubURL         string `json:"github_url" validate:"omitempty,url"`
	PersonalWebsite   string `json:"personal_website" validate:"omitempty,url"`
	CompanyName       string `json:"company_name" validate:"max=200"`
	CompanyCountry    string `json:"company_country" validate:"max=100"`
	Industry          string `json:"industry" validate:"max=100"`
}

// Profile maps the request onto directory attributes.
func (r ProfileUpdateRequest) Profile() domain.Profile {
	return domain.Profile{
		FullName:          r.FullName,
		Phone:             r.Phone,
		Bio:               r.Bio,
		University:        r.University,
		UniversityCountry: r.UniversityCountry,
		Major:             r.Major,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		IsCurrentStudent:  r.IsCurrentStudent,
		CurrentCompany:    r.CurrentCompany,
		CurrentPosition:   r.CurrentPosition,
		LinkedInURL:       r.LinkedInURL,
		InstagramURL:      r.InstagramURL,
		XTwitterURL:       r.XTwitterURL,
		TelegramURL:       r.TelegramURL,
		GitHubURL:         r.GitHubURL,
		PersonalWebsite:   r.PersonalWebsite,
		CompanyName:       r.CompanyName,
		CompanyCountry:    r.CompanyCountry,
		Industry:          r.Industry,
	}
}

// PageResponse wraps a listing page.
type PageResponse[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}
