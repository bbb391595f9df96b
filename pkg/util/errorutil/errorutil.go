package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-directory/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// outcomes maps workflow sentinels to their public code and status.
var outcomes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
	{domain.ErrAccountInactive, "ACCOUNT_INACTIVE", http.StatusForbidden},
	{domain.ErrDuplicateIdentity, "DUPLICATE_IDENTITY", http.StatusConflict},
	{domain.ErrPasswordMismatch, "PASSWORD_MISMATCH", http.StatusBadRequest},
	{domain.ErrInvalidOrExpiredToken, "INVALID_OR_EXPIRED_TOKEN", http.StatusBadRequest},
	{domain.ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	{domain.ErrDeliveryFailed, "DELIVERY_FAILED", http.StatusBadGateway},
	{domain.ErrAccountNotFound, "NOT_FOUND", http.StatusNotFound},
	{domain.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{domain.ErrInvalidAccountKind, "VALIDATION_FAILED", http.StatusBadRequest},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			// Only the sentinel text is exposed; wrapped causes stay in Err.
			return &DomainError{Code: o.code, Message: o.err.Error(), HTTPStatus: o.status, Err: err}
		}
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
