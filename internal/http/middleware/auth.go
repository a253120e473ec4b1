package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/FoldlyDev/foldly-server/internal/auth"
)

// Locals keys set by Auth for downstream handlers.
const (
	LocalUserID = "user_id"
	LocalPlan   = "plan"
)

// Auth validates the Bearer token on dashboard routes and stashes the
// authenticated identity in locals.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization header must be a bearer token",
			})
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalPlan, claims.Plan)
		return c.Next()
	}
}
