package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-directory/internal/api/dto"
	"github.com/spec-kit/member-directory/internal/service"
)

// AdminHandler exposes account administration. Routes are mounted behind
// auth.RequireAdmin; the service re-checks the actor on every change.
type AdminHandler struct {
	auth      *service.AuthService
	directory *service.DirectoryService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{auth: authService, directory: directory}
}

// ListAccounts handles GET /admin/accounts.
func (h *AdminHandler) ListAccounts(c *fiber.Ctx) error {
	page, perPage := pagination(c)
	result, err := h.directory.AdminList(c.UserContext(), page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(result, accountViews(result))})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.directory.AdminStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// GetAccount handles GET /admin/accounts/:identity.
func (h *AdminHandler) GetAccount(c *fiber.Ctx) error {
	identity, err := identityParam(c)
	if err != nil {
		return err
	}
	account, err := h.directory.Account(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// ToggleStatus handles POST /admin/accounts/:identity/toggle-status.
func (h *AdminHandler) ToggleStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	identity, err := identityParam(c)
	if err != nil {
		return err
	}
	account, err := h.auth.ToggleActive(c.UserContext(), principal.Account.Identity, identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// MakeAdmin handles POST /admin/accounts/:identity/make-admin.
func (h *AdminHandler) MakeAdmin(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	identity, err := identityParam(c)
	if err != nil {
		return err
	}
	account, err := h.auth.ElevateToAdmin(c.UserContext(), principal.Account.Identity, identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}
