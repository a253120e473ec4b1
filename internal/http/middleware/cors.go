package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS returns a CORS middleware configuration
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Link-Password, X-Uploader-Email, X-Upload-Grant")
		c.Set("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == "OPTIONS" {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
