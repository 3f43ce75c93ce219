package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"listings/models"
	"listings/services"
	"listings/utils"
)

// Authenticator verifies admin credentials
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.AdminUser, error)
}

// AuthHandler issues admin tokens
type AuthHandler struct {
	auth   Authenticator
	secret []byte
	ttl    time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, secret []byte, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{auth: auth, secret: secret, ttl: ttl}
}

// LoginRequest is the admin login body
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login exchanges admin credentials for a signed token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password are required"})
	}

	admin, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.LogWarn("Failed admin login", "username", req.Username, "ip", utils.ClientIP(c))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		utils.LogRequestError(c, "Admin login failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	expiresAt := time.Now().Add(h.ttl)
	token, err := h.generateToken(admin, expiresAt)
	if err != nil {
		utils.LogRequestError(c, "Failed to sign admin token", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"admin":      admin,
	})
}

func (h *AuthHandler) generateToken(admin *models.AdminUser, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"admin_id":     admin.ID.String(),
		"username":     admin.Username,
		"is_staff":     admin.IsStaff || admin.IsSuperuser,
		"is_superuser": admin.IsSuperuser,
		"exp":          expiresAt.Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(h.secret)
}
