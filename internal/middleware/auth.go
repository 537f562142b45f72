package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/utils"
)

const staffContextKey = "currentStaff"

// AuthMiddleware validates staff JWT tokens and loads the claims into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(staffContextKey, claims)
		return c.Next()
	}
}

// GetCurrentStaff extracts the authenticated staff claims from context.
func GetCurrentStaff(c *fiber.Ctx) (*utils.StaffClaims, bool) {
	claims, ok := c.Locals(staffContextKey).(*utils.StaffClaims)
	return claims, ok && claims != nil
}
