package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// RequireAuthorities gates a route on the caller holding at least one of
// the given authorities. An unauthenticated request yields 401, an
// authenticated one with disjoint authorities yields 403.
func RequireAuthorities(required ...string) fiber.Handler {
	requiredSet := make(map[string]struct{}, len(required))
	for _, authority := range required {
		requiredSet[authority] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(requiredSet) == 0 {
			return c.Next()
		}
		for authority := range requiredSet {
			if principal.HasAuthority(authority) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}

// RequireAuthenticated ensures the caller presented a valid token,
// regardless of role.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
