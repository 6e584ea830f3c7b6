package auth

import (
	"github.com/gofiber/fiber/v2"

	"flowforge/internal/config"
	"flowforge/internal/dispatch"
)

// AuthHandler handles authentication endpoints against the single
// configured operator credential.
type AuthHandler struct {
	cfg       config.AuthConfig
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg config.AuthConfig, jwtSecret string) *AuthHandler {
	return &AuthHandler{cfg: cfg, jwtSecret: jwtSecret}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return dispatch.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return dispatch.UnauthorizedError("Username and password are required")
	}

	if h.cfg.PasswordHash == "" {
		return dispatch.UnauthorizedError("No operator credential configured")
	}
	if body.Username != h.cfg.Username || !CheckPassword(body.Password, h.cfg.PasswordHash) {
		return dispatch.UnauthorizedError("Invalid username or password")
	}

	token, err := GenerateAccessToken(body.Username, h.jwtSecret)
	if err != nil {
		return dispatch.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"access_token": token}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	app.Post("/api/auth/login", h.Login)
}
