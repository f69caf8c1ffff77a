// Package bot maps gateway interactions (slash commands and buttons) onto
// ticket lifecycle operations and formats the short user-facing replies.
package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// Router dispatches interactions to the ticket service.
type Router struct {
	tickets *service.TicketService
	client  platform.Client
	logger  *zap.Logger
}

// NewRouter constructs the interaction router.
func NewRouter(tickets *service.TicketService, client platform.Client, logger *zap.Logger) *Router {
	return &Router{tickets: tickets, client: client, logger: logger}
}

// Handle consumes one interaction and returns the reply text ("" when no
// reply is wanted).
func (r *Router) Handle(ctx context.Context, interaction platform.Interaction) string {
	actor, err := r.client.ResolveActor(ctx, interaction.GuildID, interaction.UserID)
	if err != nil {
		r.logger.Warn("actor resolution failed",
			zap.String("guild_id", interaction.GuildID),
			zap.String("user_id", interaction.UserID),
			zap.Error(err))
		return "❌ Something went wrong. Please try again."
	}

	action := interaction.Name
	if interaction.Type == "button" {
		action = buttonAction(interaction.CustomID)
	}

	switch action {
	case "ticket", "create":
		return r.create(ctx, interaction, actor)
	case "close":
		return r.close(ctx, interaction, actor)
	case "reopen":
		return r.reopen(ctx, interaction, actor)
	case "delete":
		return r.delete(ctx, interaction, actor)
	case "transcript":
		return r.transcript(ctx, interaction, actor)
	default:
		return ""
	}
}

func buttonAction(customID string) string {
	switch customID {
	case "create_ticket":
		return "create"
	case "close_ticket":
		return "close"
	case "reopen_ticket":
		return "reopen"
	case "delete_ticket":
		return "delete"
	case "transcript_ticket":
		return "transcript"
	}
	return ""
}

func (r *Router) create(ctx context.Context, interaction platform.Interaction, actor domain.Actor) string {
	ticket, err := r.tickets.Create(ctx, interaction.GuildID, actor, interaction.Options["reason"])
	if err != nil {
		if existing, ok := util.ExistingChannelID(err); ok {
			return fmt.Sprintf("❌ You already have an open ticket! Your existing ticket: <#%s>", existing)
		}
		return "❌ " + util.ToDomainError(err).Message
	}
	return fmt.Sprintf("✅ Ticket created successfully! <#%s>", ticket.ChannelID)
}

func (r *Router) close(ctx context.Context, interaction platform.Interaction, actor domain.Actor) string {
	if _, err := r.tickets.Close(ctx, interaction.GuildID, interaction.ChannelID, actor); err != nil {
		if util.CodeOf(err) == util.CodeNotATicket {
			return "❌ This is not an active ticket channel."
		}
		return "❌ " + util.ToDomainError(err).Message
	}
	return "🔒 Ticket closed! Use the buttons below to reopen, get transcript, or delete."
}

func (r *Router) reopen(ctx context.Context, interaction platform.Interaction, actor domain.Actor) string {
	if _, err := r.tickets.Reopen(ctx, interaction.GuildID, interaction.ChannelID, actor); err != nil {
		if util.CodeOf(err) == util.CodeNotATicket {
			return "❌ This is not a closed ticket channel."
		}
		return "❌ " + util.ToDomainError(err).Message
	}
	return "🔓 Ticket reopened successfully!"
}

func (r *Router) delete(ctx context.Context, interaction platform.Interaction, actor domain.Actor) string {
	if _, err := r.tickets.Delete(ctx, interaction.GuildID, interaction.ChannelID, actor); err != nil {
		if util.CodeOf(err) == util.CodeNotATicket {
			return "❌ This is not a ticket channel."
		}
		return "❌ " + util.ToDomainError(err).Message
	}
	return "🗑️ Deleting ticket in 3 seconds..."
}

func (r *Router) transcript(ctx context.Context, interaction platform.Interaction, actor domain.Actor) string {
	if _, err := r.tickets.Transcript(ctx, interaction.GuildID, interaction.ChannelID, actor); err != nil {
		if util.CodeOf(err) == util.CodeNotATicket {
			return "❌ This is not a ticket channel."
		}
		return "❌ Failed to generate transcript. Please try again."
	}
	return "📄 Transcript generated."
}
