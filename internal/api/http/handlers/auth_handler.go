package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/member-directory/internal/api/dto"
	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/service"
)

// resetAcceptedMessage is returned for every accepted reset request,
// whether or not the address belongs to an account.
const resetAcceptedMessage = "If an account with that email exists, a password reset link has been sent."

// SessionCookie controls how the session cookie is written.
type SessionCookie struct {
	Name   string
	Secure bool
}

// AuthHandler exposes registration, login, verification and reset endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	cookie SessionCookie
	logger *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie SessionCookie, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = auth.DefaultSessionCookie
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, cookie: cookie, logger: logger}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Identity:     req.Email,
		Password:     req.Password,
		Confirmation: req.ConfirmPassword,
		Kind:         domain.AccountKind(req.Kind),
		Profile:      req.Profile(),
	})
	sent := true
	if err != nil {
		if !errors.Is(err, domain.ErrDeliveryFailed) || account == nil {
			return err
		}
		sent = false
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.RegisterResponse{
			Account:               dto.NewAccountResponse(account),
			VerificationEmailSent: sent,
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	next := req.Next
	if next == "" {
		next = c.Query("next")
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		ClientID: auth.ClientIP(c),
		Identity: req.Email,
		Password: req.Password,
		Next:     next,
	})
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"account": dto.NewAccountResponse(result.Account),
			"auth": dto.AuthResponse{
				Token:     result.Token,
				ExpiresAt: result.Session.ExpiresAt,
				Redirect:  result.Redirect,
			},
		},
	})
}

// Logout handles POST /auth/logout. Sessions are stateless, so logging out
// only expires the cookie; it succeeds with or without a live session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(http.StatusNoContent)
}

// Verify handles GET /auth/verify/:token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	account, err := h.auth.ConsumeVerification(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"email":    account.Identity,
			"verified": true,
		},
	})
}

// ResendVerification handles POST /auth/verify/resend.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if principal.Account.IsVerified {
		return c.JSON(fiber.Map{"data": fiber.Map{"already_verified": true}})
	}
	if err := h.auth.ResendVerification(c.UserContext(), auth.ClientIP(c), principal.Account.Identity); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
//
// The response is the same for known and unknown addresses and for failed
// deliveries; only throttling is reported.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.auth.RequestPasswordReset(c.UserContext(), auth.ClientIP(c), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRateLimited):
		return err
	default:
		h.logger.Warn("password reset request failed", zap.Error(err))
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": resetAcceptedMessage},
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.auth.ConsumePasswordReset(c.UserContext(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password updated"}})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.Account.Identity, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password updated"}})
}
