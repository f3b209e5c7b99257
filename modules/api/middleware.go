package api

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/mulliganw/ahsoftwareclub-website/modules/auth"
)

// localToken is the fiber local carrying the bearer token into the websocket handler.
const localToken = "token"

// socketAuth rejects websocket upgrades without a valid token before the
// connection is hijacked, so clients get a plain 401 instead of a close frame.
func (m *APIModule) socketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := bearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Token is required",
		})
	}

	if _, err := m.auth.ValidateToken(c.UserContext(), token); err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			m.logger.Error("Failed to validate token", "error", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(localToken, token)
	return c.Next()
}
