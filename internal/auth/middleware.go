package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"customfields-backend/internal/engine"
)

// AuthMiddleware returns a Fiber middleware that validates JWT tokens
// and sets the claims on the request.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireAdmin is a Fiber middleware that checks the authenticated user
// has admin rights.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok || claims == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !claims.IsAdmin {
			return engine.ForbiddenError("Admin access required")
		}
		return c.Next()
	}
}

// GetClaims extracts the authenticated claims from a Fiber context.
func GetClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals("claims").(*Claims)
	return claims
}
