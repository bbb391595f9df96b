package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-directory/internal/api/dto"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/service"
)

// DirectoryHandler exposes the public directory.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Members handles GET /directory/members.
func (h *DirectoryHandler) Members(c *fiber.Ctx) error {
	return h.list(c, domain.AccountKindMember)
}

// Companies handles GET /directory/companies.
func (h *DirectoryHandler) Companies(c *fiber.Ctx) error {
	return h.list(c, domain.AccountKindCompany)
}

// Profile handles GET /directory/profiles/:identity.
func (h *DirectoryHandler) Profile(c *fiber.Ctx) error {
	identity, err := identityParam(c)
	if err != nil {
		return err
	}
	account, err := h.directory.PublicProfile(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPublicProfileResponse(account)})
}

// Stats handles GET /directory/stats.
func (h *DirectoryHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.directory.PublicStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func (h *DirectoryHandler) list(c *fiber.Ctx, kind domain.AccountKind) error {
	page, perPage := pagination(c)
	result, err := h.directory.ListPublic(c.UserContext(), kind, page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(result, publicViews(result))})
}
