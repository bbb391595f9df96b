package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-directory/internal/api/dto"
	"github.com/spec-kit/member-directory/internal/service"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	directory *service.DirectoryService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(directory *service.DirectoryService) *AccountHandler {
	return &AccountHandler{directory: directory}
}

// Me handles GET /account/me.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(principal.Account)})
}

// UpdateProfile handles PUT /account/profile.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProfileUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	account, err := h.directory.UpdateProfile(c.UserContext(), principal.Account.Identity, req.Profile())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}
