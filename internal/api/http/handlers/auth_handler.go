package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-ticket-bot/internal/api/dto"
	"github.com/spec-kit/guild-ticket-bot/internal/auth"
	"github.com/spec-kit/guild-ticket-bot/internal/config"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// AuthHandler exchanges service-client credentials for bearer tokens.
type AuthHandler struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: tokens}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return util.NewValidationError("client_id and client_secret required", nil)
	}
	if req.ClientID != h.cfg.ClientID || h.cfg.ClientSecretHash == "" {
		return util.NewUnauthorized("unknown client")
	}
	if err := auth.CompareClientSecret(h.cfg.ClientSecretHash, req.ClientSecret); err != nil {
		return util.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.ClientID)
	if err != nil {
		return util.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}})
}
