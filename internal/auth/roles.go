package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// RequireRole ensures the resolved actor holds one of the allowed roles.
// It must run after AuthMiddleware.Handle or Optional.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)
		if actor == nil {
			return errorutil.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return errorutil.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
