package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-ticket-bot/internal/api/dto"
	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// TicketsHandler exposes the lifecycle operations over the admin API. Every
// call acts on behalf of a guild member, resolved through the platform so
// the same authorization policy applies as in chat.
type TicketsHandler struct {
	tickets *service.TicketService
	client  platform.Client
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, client platform.Client) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, client: client}
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == "" || req.UserID == "" {
		return util.NewValidationError("guild_id and user_id required", nil)
	}
	actor, err := h.client.ResolveActor(c.Context(), req.GuildID, req.UserID)
	if err != nil {
		return util.NewExternalFailed("failed to resolve member", err)
	}
	ticket, err := h.tickets.Create(c.Context(), req.GuildID, actor, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Close POST /api/tickets/:channelID/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.action(c, h.tickets.Close)
}

// Reopen POST /api/tickets/:channelID/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	return h.action(c, h.tickets.Reopen)
}

// Delete POST /api/tickets/:channelID/delete.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	return h.action(c, h.tickets.Delete)
}

// Transcript POST /api/tickets/:channelID/transcript.
func (h *TicketsHandler) Transcript(c *fiber.Ctx) error {
	req, actor, err := h.parseAction(c)
	if err != nil {
		return err
	}
	result, err := h.tickets.Transcript(c.Context(), req.GuildID, c.Params("channelID"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TranscriptResponse{
		MessageCount: result.MessageCount,
		DeliveredTo:  result.DeliveredTo,
		FileName:     result.FileName,
	}})
}

type lifecycleFunc func(ctx context.Context, guildID, channelID string, actor domain.Actor) (*domain.Ticket, error)

func (h *TicketsHandler) action(c *fiber.Ctx, op lifecycleFunc) error {
	req, actor, err := h.parseAction(c)
	if err != nil {
		return err
	}
	ticket, err := op(c.Context(), req.GuildID, c.Params("channelID"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func (h *TicketsHandler) parseAction(c *fiber.Ctx) (dto.TicketActionRequest, domain.Actor, error) {
	var req dto.TicketActionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, domain.Actor{}, util.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == "" || req.ActorID == "" {
		return req, domain.Actor{}, util.NewValidationError("guild_id and actor_id required", nil)
	}
	actor, err := h.client.ResolveActor(c.Context(), req.GuildID, req.ActorID)
	if err != nil {
		return req, domain.Actor{}, util.NewExternalFailed("failed to resolve member", err)
	}
	return req, actor, nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ChannelID:    ticket.ChannelID,
		GuildID:      ticket.GuildID,
		UserID:       ticket.UserID,
		Reason:       ticket.Reason,
		TicketNumber: ticket.TicketNumber,
		CreatedAt:    ticket.CreatedAt,
		ClosedAt:     ticket.ClosedAt,
		ClosedBy:     ticket.ClosedBy,
	}
}
