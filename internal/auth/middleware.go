package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"flowforge/internal/dispatch"
)

// AuthMiddleware returns a Fiber middleware that validates JWT tokens and
// records the operator name on the request.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return dispatch.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return dispatch.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return dispatch.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("operator", claims.Subject)
		return c.Next()
	}
}

// Operator extracts the authenticated operator name from a Fiber context.
func Operator(c *fiber.Ctx) string {
	name, _ := c.Locals("operator").(string)
	return name
}
