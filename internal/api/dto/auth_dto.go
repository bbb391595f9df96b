package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/member-directory/internal/domain"
)

// RegisterRequest payload for new accounts. Member and company accounts
// require different profile fields.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Kind            string `json:"kind" validate:"required,oneof=member company"`

	FullName          string `json:"full_name" validate:"required_if=Kind member,max=120"`
	University        string `json:"university" validate:"required_if=Kind member,max=200"`
	UniversityCountry string `json:"university_country" validate:"required_if=Kind member,max=100"`
	Major             string `json:"major" validate:"required_if=Kind member,max=200"`
	StartDate         string `json:"start_date" validate:"omitempty,datetime=01-2006"`
	EndDate           string `json:"end_date" validate:"omitempty,datetime=01-2006"`
	IsCurrentStudent  bool   `json:"is_current_student"`
	CurrentCompany    string `json:"current_company" validate:"max=200"`
	CurrentPosition   string `json:"current_position" validate:"max=200"`
	Bio               string `json:"bio" validate:"max=2000"`
	LinkedInURL       string `json:"linkedin_url" validate:"omitempty,url"`

	CompanyName    string `json:"company_name" validate:"required_if=Kind company,max=200"`
	CompanyCountry string `json:"company_country" validate:"required_if=Kind company,max=100"`
	Industry       string `json:"industry" validate:"required_if=Kind company,max=100"`
}

// Profile maps the request onto directory attributes.
func (r RegisterRequest) Profile() domain.Profile {
	return domain.Profile{
		FullName:          strings.TrimSpace(r.FullName),
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
		CompanyName:       strings.TrimSpace(r.CompanyName),
		CompanyCountry:    r.CompanyCountry,
		Industry:          r.Industry,
	}
}

// RegisterResponse reports the created account.
type RegisterResponse struct {
	Account               AccountResponse `json:"account"`
	VerificationEmailSent bool            `json:"verification_email_sent"`
}

// LoginRequest payload for login. Next may also be passed as a query parameter.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Redirect  string    `json:"redirect,omitempty"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}
