package domain

import "errors"

// Workflow outcomes surfaced to the boundary layer.
var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrDuplicateIdentity     = errors.New("email already registered")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrRateLimited           = errors.New("too many requests")
	ErrDeliveryFailed        = errors.New("message delivery failed")
	ErrAccountNotFound       = errors.New("account not found")
	ErrForbidden             = errors.New("admin privileges required")
	ErrInvalidAccountKind    = errors.New("invalid account kind")
)
