package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-for-admin-tokens")

func signToken(t *testing.T, method jwt.SigningMethod, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims(id uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"admin_id": id.String(),
		"username": "admin",
		"is_staff": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", AdminJWTMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"admin_id": c.Locals(LocalAdminID).(uuid.UUID).String(),
			"username": c.Locals(LocalAdminUsername),
		})
	})
	return app
}

func TestAdminJWTMiddlewareAcceptsValidToken(t *testing.T) {
	id := uuid.New()
	app := newProtectedApp()

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS512, testSecret, validClaims(id)))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id.String(), body["admin_id"])
	assert.Equal(t, "admin", body["username"])
}

func TestAdminJWTMiddlewareRejects(t *testing.T) {
	id := uuid.New()

	expired := validClaims(id)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noExp := validClaims(id)
	delete(noExp, "exp")

	notStaff := validClaims(id)
	notStaff["is_staff"] = false

	badID := validClaims(id)
	badID["admin_id"] = "not-a-uuid"

	noID := validClaims(id)
	delete(noID, "admin_id")

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte("other"), validClaims(id)), fiber.StatusUnauthorized},
		{"wrong algorithm", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(id)), fiber.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, expired), fiber.StatusUnauthorized},
		{"no expiry", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, noExp), fiber.StatusUnauthorized},
		{"missing admin id", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, noID), fiber.StatusUnauthorized},
		{"malformed admin id", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, badID), fiber.StatusUnauthorized},
		{"not staff", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, notStaff), fiber.StatusForbidden},
	}

	app := newProtectedApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
