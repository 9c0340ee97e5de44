package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/domain"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// RequireSuperadmin restricts a route to the global supervisor role.
func RequireSuperadmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if identity.Role != domain.RoleSuperadmin {
			return apperrors.NewForbidden("superadmin required")
		}
		return c.Next()
	}
}
