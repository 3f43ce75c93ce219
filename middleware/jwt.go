package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Locals keys set by AdminJWTMiddleware
const (
	LocalAdminID       = "admin_id"
	LocalAdminUsername = "admin_username"
)

// AdminJWTMiddleware validates HS512 admin tokens and sets the admin identity in context
func AdminJWTMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization"})
		}

		token = strings.TrimPrefix(token, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithExpirationRequired())

		if err != nil || !parsed.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		adminIDStr, ok := claims["admin_id"].(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing admin_id claim"})
		}
		adminID, err := uuid.Parse(adminIDStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid admin_id format"})
		}

		if staff, _ := claims["is_staff"].(bool); !staff {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Staff access required"})
		}

		username, _ := claims["username"].(string)
		c.Locals(LocalAdminID, adminID)
		c.Locals(LocalAdminUsername, username)

		return c.Next()
	}
}
