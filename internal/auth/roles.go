package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/member-directory/pkg/util/errorutil"
)

// RequireAdmin ensures the loaded account holds admin privileges.
//
// The flag is read from the freshly loaded record, not the session claims,
// so a session issued before elevation does not need to be refreshed.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Account == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Account.IsAdmin {
			return apperrors.NewForbidden("admin privileges required")
		}
		return c.Next()
	}
}
