// Package worker hosts the background pieces of the ticket subsystem: the
// moderation-log audit subscriber and the closed-ticket retention sweeper.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
)

// AuditWorker mirrors lifecycle events into each guild's moderation-log
// channel and the structured log. Delivery is best effort.
type AuditWorker struct {
	configs repository.TicketConfigRepository
	client  platform.Client
	logger  *zap.Logger
}

// NewAuditWorker constructs the worker.
func NewAuditWorker(configs repository.TicketConfigRepository, client platform.Client, logger *zap.Logger) *AuditWorker {
	return &AuditWorker{configs: configs, client: client, logger: logger}
}

// Register subscribes the worker to every lifecycle event type.
func (w *AuditWorker) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventTicketDeleted,
		events.EventTranscriptGenerated,
	} {
		dispatcher.Subscribe(eventType, w.handle)
	}
}

func (w *AuditWorker) handle(ctx context.Context, event events.Event) error {
	w.logger.Info("ticket lifecycle event",
		zap.String("type", string(event.Type)),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID),
	)

	cfg, err := w.configs.Get(ctx, event.GuildID)
	if err != nil || cfg.ModLogChannelID == nil {
		return nil
	}
	notice := platform.SendRequest{
		Embed: &platform.Embed{
			Title:       auditTitle(event.Type),
			Description: fmt.Sprintf("Channel: <#%s>\nActor: <@%s>", event.ChannelID, event.ActorID),
		},
	}
	if _, err := w.client.SendMessage(ctx, *cfg.ModLogChannelID, notice); err != nil {
		w.logger.Warn("mod-log notice failed",
			zap.String("guild_id", event.GuildID),
			zap.Error(err))
	}
	return nil
}

func auditTitle(eventType events.EventType) string {
	switch eventType {
	case events.EventTicketCreated:
		return "Ticket Created"
	case events.EventTicketClosed:
		return "Ticket Closed"
	case events.EventTicketReopened:
		return "Ticket Reopened"
	case events.EventTicketDeleted:
		return "Ticket Deleted"
	case events.EventTranscriptGenerated:
		return "Transcript Generated"
	}
	return string(eventType)
}
