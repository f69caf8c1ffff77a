package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-ticket-bot/internal/api/dto"
	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// SetupHandler exposes the guild configuration surface.
type SetupHandler struct {
	setup  *service.SetupService
	client platform.Client
}

// NewSetupHandler constructs the handler.
func NewSetupHandler(setup *service.SetupService, client platform.Client) *SetupHandler {
	return &SetupHandler{setup: setup, client: client}
}

// SetCategory PUT /api/guilds/:guildID/config/category.
func (h *SetupHandler) SetCategory(c *fiber.Ctx) error {
	return h.setTarget(c, h.setup.SetCategory)
}

// SetSupportRole PUT /api/guilds/:guildID/config/support-role.
func (h *SetupHandler) SetSupportRole(c *fiber.Ctx) error {
	return h.setTarget(c, h.setup.SetSupportRole)
}

// SetTranscriptChannel PUT /api/guilds/:guildID/config/transcript-channel.
func (h *SetupHandler) SetTranscriptChannel(c *fiber.Ctx) error {
	return h.setTarget(c, h.setup.SetTranscriptChannel)
}

// SetModLogChannel PUT /api/guilds/:guildID/config/modlog-channel.
func (h *SetupHandler) SetModLogChannel(c *fiber.Ctx) error {
	return h.setTarget(c, h.setup.SetModLogChannel)
}

// PublishPanel POST /api/guilds/:guildID/panel.
func (h *SetupHandler) PublishPanel(c *fiber.Ctx) error {
	return h.setTarget(c, h.setup.PublishPanel)
}

// Disable POST /api/guilds/:guildID/disable.
func (h *SetupHandler) Disable(c *fiber.Ctx) error {
	var req dto.GuildActionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	actor, err := h.resolve(c, req.ActorID)
	if err != nil {
		return err
	}
	cfg, err := h.setup.Disable(c.Context(), c.Params("guildID"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": configResponse(cfg)})
}

// View GET /api/guilds/:guildID/config.
func (h *SetupHandler) View(c *fiber.Ctx) error {
	actorID := c.Query("actor_id")
	actor, err := h.resolve(c, actorID)
	if err != nil {
		return err
	}
	cfg, err := h.setup.View(c.Context(), c.Params("guildID"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": configResponse(cfg)})
}

type setupFunc func(ctx context.Context, guildID string, actor domain.Actor, targetID string) (*domain.TicketConfig, error)

func (h *SetupHandler) setTarget(c *fiber.Ctx, op setupFunc) error {
	var req dto.SetChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TargetID == "" {
		return util.NewValidationError("target_id required", nil)
	}
	actor, err := h.resolve(c, req.ActorID)
	if err != nil {
		return err
	}
	cfg, err := op(c.Context(), c.Params("guildID"), actor, req.TargetID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": configResponse(cfg)})
}

func (h *SetupHandler) resolve(c *fiber.Ctx, actorID string) (domain.Actor, error) {
	if actorID == "" {
		return domain.Actor{}, util.NewValidationError("actor_id required", nil)
	}
	actor, err := h.client.ResolveActor(c.Context(), c.Params("guildID"), actorID)
	if err != nil {
		return domain.Actor{}, util.NewExternalFailed("failed to resolve member", err)
	}
	return actor, nil
}

func configResponse(cfg *domain.TicketConfig) dto.ConfigResponse {
	return dto.ConfigResponse{
		GuildID:             cfg.GuildID,
		Enabled:             cfg.Enabled,
		CategoryID:          cfg.CategoryID,
		SupportRoleID:       cfg.SupportRoleID,
		PanelChannelID:      cfg.PanelChannelID,
		TranscriptChannelID: cfg.TranscriptChannelID,
		ModLogChannelID:     cfg.ModLogChannelID,
		TicketCounter:       cfg.TicketCounter,
		CloseAfterHours:     cfg.CloseAfterHours,
	}
}
