package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-directory/internal/api/dto"
	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/service"
	apperrors "github.com/spec-kit/member-directory/pkg/util/errorutil"
)

const (
	defaultPerPage = 12
	maxPerPage     = 100
)

// bind decodes the request body into req and validates it.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func identityParam(c *fiber.Ctx) (string, error) {
	identity, err := url.PathUnescape(c.Params("identity"))
	if err != nil || identity == "" {
		return "", apperrors.NewValidationError("invalid identity", nil)
	}
	return identity, nil
}

func pagination(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func pageResponse[T any](p *service.Page, items []T) dto.PageResponse[T] {
	return dto.PageResponse[T]{
		Items:   items,
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   p.Total,
	}
}

func accountViews(p *service.Page) []dto.AccountResponse {
	out := make([]dto.AccountResponse, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		out = append(out, dto.NewAccountResponse(a))
	}
	return out
}

func publicViews(p *service.Page) []dto.PublicProfileResponse {
	out := make([]dto.PublicProfileResponse, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		out = append(out, dto.NewPublicProfileResponse(a))
	}
	return out
}
