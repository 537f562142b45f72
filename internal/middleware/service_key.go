package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// ServiceKeyMiddleware guards internal endpoints with the shared service key.
func ServiceKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(services.ServiceKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid service key")
		}
		return c.Next()
	}
}
