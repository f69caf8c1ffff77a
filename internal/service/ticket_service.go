package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/observability"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// TicketService is the ticket lifecycle engine: create, close, reopen,
// delete and transcript over the runtime registries.
type TicketService struct {
	configs    repository.TicketConfigRepository
	registry   *repository.TicketRegistry
	client     platform.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	botUserID       string
	deleteGrace     time.Duration
	historyPageSize int

	// userLocks serializes create per (guild,user); channelLocks serializes
	// close/reopen/delete per (guild,channel).
	userLocks    *repository.KeyedMutex
	channelLocks *repository.KeyedMutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	ConfigRepo repository.TicketConfigRepository
	Registry   *repository.TicketRegistry
	Platform   platform.Client
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics

	BotUserID       string
	DeleteGrace     time.Duration
	HistoryPageSize int
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	pageSize := deps.HistoryPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		configs:         deps.ConfigRepo,
		registry:        deps.Registry,
		client:          deps.Platform,
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		metrics:         deps.Metrics,
		botUserID:       deps.BotUserID,
		deleteGrace:     deps.DeleteGrace,
		historyPageSize: pageSize,
		userLocks:       repository.NewKeyedMutex(),
		channelLocks:    repository.NewKeyedMutex(),
	}
}

const memberTicketPerms = platform.PermViewChannel | platform.PermSendMessages |
	platform.PermReadMessageHistory | platform.PermAttachFiles

// Create opens a new ticket channel for the requester.
//
// The ticket counter is incremented and persisted before the channel is
// requested and is not rolled back when channel creation fails, so a failed
// create leaves a benign gap in the numbering rather than risking a
// collision with a concurrent successful create.
func (s *TicketService) Create(ctx context.Context, guildID string, requester domain.Actor, reason string) (*domain.Ticket, error) {
	if reason == "" {
		reason = domain.DefaultReason
	}

	unlock := s.userLocks.Lock(guildID + ":" + requester.ID)
	defer unlock()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, s.fail("create", util.NewInternalError(err))
	}
	if !cfg.Enabled || cfg.CategoryID == nil {
		return nil, s.fail("create", util.NewNotConfigured("the ticket system is not enabled on this server"))
	}
	if _, err := s.client.ChannelInfo(ctx, *cfg.CategoryID); err != nil {
		return nil, s.fail("create", util.NewNotConfigured("the configured ticket category no longer exists"))
	}

	if existing, ok := s.registry.OpenByUser(guildID, requester.ID); ok {
		return nil, s.fail("create", util.NewDuplicateTicket(existing.ChannelID))
	}

	number, err := s.configs.NextTicketNumber(ctx, guildID)
	if err != nil {
		return nil, s.fail("create", util.NewInternalError(err))
	}

	overwrites := []platform.Overwrite{
		// the everyone role shares the guild's id
		{TargetID: guildID, Deny: platform.PermViewChannel},
		{TargetID: requester.ID, Allow: memberTicketPerms},
		{TargetID: s.botUserID, Allow: memberTicketPerms | platform.PermManageChannels},
	}
	if cfg.SupportRoleID != nil {
		overwrites = append(overwrites, platform.Overwrite{TargetID: *cfg.SupportRoleID, Allow: memberTicketPerms})
	}

	channel, err := s.client.CreateChannel(ctx, platform.CreateChannelRequest{
		GuildID:    guildID,
		Name:       domain.OpenChannelName(number),
		ParentID:   *cfg.CategoryID,
		Overwrites: overwrites,
	})
	if err != nil {
		s.logger.Error("ticket channel creation failed",
			zap.String("guild_id", guildID),
			zap.Uint64("ticket_number", number),
			zap.Error(err))
		return nil, s.fail("create", util.NewExternalFailed("failed to create ticket channel", err))
	}

	ticket := &domain.Ticket{
		ChannelID:    channel.ID,
		GuildID:      guildID,
		UserID:       requester.ID,
		Reason:       reason,
		TicketNumber: number,
		CreatedAt:    time.Now(),
	}
	s.registry.InsertOpen(ticket)

	welcome := platform.SendRequest{
		Embed: &platform.Embed{
			Title: fmt.Sprintf("Ticket #%04d", number),
			Description: fmt.Sprintf(
				"Hello <@%s>! Thank you for creating a ticket.\n\n**Reason:** %s\n\nOur support team will be with you shortly. Please describe your issue in detail.",
				requester.ID, reason),
			Footer: "Use /close to close this ticket when resolved",
		},
		Buttons: []platform.Button{
			{CustomID: "close_ticket", Label: "Close Ticket", Style: "danger", Emoji: "🔒"},
			{CustomID: "transcript_ticket", Label: "Transcript", Style: "secondary", Emoji: "📄"},
		},
	}
	if cfg.SupportRoleID != nil {
		welcome.MentionRoleID = *cfg.SupportRoleID
	}
	// the welcome notification is best effort; the ticket is already live
	if _, err := s.client.SendMessage(ctx, channel.ID, welcome); err != nil {
		s.logger.Warn("ticket welcome message failed",
			zap.String("channel_id", channel.ID),
			zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		GuildID:   guildID,
		ChannelID: channel.ID,
		ActorID:   requester.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: number,
			UserID:       requester.ID,
			Reason:       reason,
		},
	})
	s.metrics.RecordLifecycle("create", "ok")
	return ticket, nil
}

// Close moves an open ticket to the closed registry, revokes the owner's
// ability to post, renames the channel and posts the closure notice.
func (s *TicketService) Close(ctx context.Context, guildID, channelID string, actor domain.Actor) (*domain.Ticket, error) {
	unlock := s.channelLocks.Lock(guildID + ":" + channelID)
	defer unlock()

	ticket, ok := s.registry.OpenByChannel(guildID, channelID)
	if !ok {
		return nil, s.fail("close", util.NewNotATicket())
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, s.fail("close", util.NewInternalError(err))
	}
	if !CanActOnTicket(actor, ticket, cfg) {
		return nil, s.fail("close", util.NewForbidden("you can only close your own tickets"))
	}

	now := time.Now()
	s.registry.MoveToClosed(guildID, channelID, now, actor.ID)

	// channel cosmetics are best effort; registry state is the truth.
	// EditChannelPermissions replaces the owner's whole overwrite, so the
	// read-side allows must be restated or the owner loses view access.
	if err := s.client.EditChannelPermissions(ctx, channelID, platform.Overwrite{
		TargetID: ticket.UserID,
		Allow:    memberTicketPerms &^ platform.PermSendMessages,
		Deny:     platform.PermSendMessages | platform.PermAddReactions,
	}); err != nil {
		s.logger.Warn("close permission edit failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := s.client.RenameChannel(ctx, channelID, domain.MarkClosedName(domain.OpenChannelName(ticket.TicketNumber))); err != nil {
		s.logger.Warn("close rename failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	notice := platform.SendRequest{
		Embed: &platform.Embed{
			Title:       "Ticket Closed",
			Description: fmt.Sprintf("This ticket has been closed by <@%s>\n\nYou can reopen, delete, or save a transcript using the buttons below.", actor.ID),
			Fields: []platform.EmbedField{
				{Name: "Closed At", Value: now.Format(time.RFC1123), Inline: true},
				{Name: "Ticket Creator", Value: "<@" + ticket.UserID + ">", Inline: true},
			},
		},
		Buttons: []platform.Button{
			{CustomID: "reopen_ticket", Label: "Reopen", Style: "success", Emoji: "🔓"},
			{CustomID: "transcript_ticket", Label: "Transcript", Style: "secondary", Emoji: "📄"},
			{CustomID: "delete_ticket", Label: "Delete", Style: "danger", Emoji: "🗑️"},
		},
	}
	if _, err := s.client.SendMessage(ctx, channelID, notice); err != nil {
		s.logger.Warn("close notice failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketClosed,
		GuildID:   guildID,
		ChannelID: channelID,
		ActorID:   actor.ID,
		Payload: events.TicketClosedPayload{
			TicketNumber: ticket.TicketNumber,
			UserID:       ticket.UserID,
			ClosedBy:     actor.ID,
		},
	})
	s.metrics.RecordLifecycle("close", "ok")
	return ticket, nil
}

// Reopen moves a closed ticket back to the open registry and restores the
// owner's ability to post. Reopening a channel that is not a closed ticket
// fails with the not-a-ticket error.
func (s *TicketService) Reopen(ctx context.Context, guildID, channelID string, actor domain.Actor) (*domain.Ticket, error) {
	unlock := s.channelLocks.Lock(guildID + ":" + channelID)
	defer unlock()

	ticket, ok := s.registry.ClosedByChannel(guildID, channelID)
	if !ok {
		return nil, s.fail("reopen", util.NewNotATicket())
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, s.fail("reopen", util.NewInternalError(err))
	}
	if !CanActOnTicket(actor, ticket, cfg) {
		return nil, s.fail("reopen", util.NewForbidden("you can only reopen your own tickets"))
	}

	s.registry.MoveToOpen(guildID, channelID)

	if err := s.client.EditChannelPermissions(ctx, channelID, platform.Overwrite{
		TargetID: ticket.UserID,
		Allow:    memberTicketPerms,
	}); err != nil {
		s.logger.Warn("reopen permission edit failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := s.client.RenameChannel(ctx, channelID, domain.OpenChannelName(ticket.TicketNumber)); err != nil {
		s.logger.Warn("reopen rename failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	notice := platform.SendRequest{
		Embed: &platform.Embed{
			Title:       "Ticket Reopened",
			Description: fmt.Sprintf("This ticket has been reopened by <@%s>", actor.ID),
		},
		Buttons: []platform.Button{
			{CustomID: "close_ticket", Label: "Close Ticket", Style: "danger", Emoji: "🔒"},
			{CustomID: "transcript_ticket", Label: "Transcript", Style: "secondary", Emoji: "📄"},
		},
	}
	if _, err := s.client.SendMessage(ctx, channelID, notice); err != nil {
		s.logger.Warn("reopen notice failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketReopened,
		GuildID:   guildID,
		ChannelID: channelID,
		ActorID:   actor.ID,
		Payload: events.TicketReopenedPayload{
			TicketNumber: ticket.TicketNumber,
			UserID:       ticket.UserID,
			ReopenedBy:   actor.ID,
		},
	})
	s.metrics.RecordLifecycle("reopen", "ok")
	return ticket, nil
}

// Delete removes the ticket from its registry and schedules channel
// destruction after the grace delay so the deletion notice stays visible.
// A failed channel deletion is logged, never retried, and does not
// resurrect the registry entry.
func (s *TicketService) Delete(ctx context.Context, guildID, channelID string, actor domain.Actor) (*domain.Ticket, error) {
	unlock := s.channelLocks.Lock(guildID + ":" + channelID)
	defer unlock()

	ticket, ok := s.registry.ByChannel(guildID, channelID)
	if !ok {
		return nil, s.fail("delete", util.NewNotATicket())
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, s.fail("delete", util.NewInternalError(err))
	}
	if !CanActOnTicket(actor, ticket, cfg) {
		return nil, s.fail("delete", util.NewForbidden("you can only delete your own tickets"))
	}

	notice := platform.SendRequest{
		Embed: &platform.Embed{
			Title:       "Ticket Deleted",
			Description: fmt.Sprintf("This ticket is being deleted by <@%s>", actor.ID),
		},
	}
	if _, err := s.client.SendMessage(ctx, channelID, notice); err != nil {
		s.logger.Warn("delete notice failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	s.registry.Remove(guildID, channelID)

	grace := s.deleteGrace
	logger := s.logger
	client := s.client
	go func() {
		if grace > 0 {
			time.Sleep(grace)
		}
		if err := client.DeleteChannel(context.Background(), channelID); err != nil {
			logger.Error("ticket channel deletion failed",
				zap.String("channel_id", channelID),
				zap.Error(err))
		}
	}()

	s.publish(ctx, events.Event{
		Type:      events.EventTicketDeleted,
		GuildID:   guildID,
		ChannelID: channelID,
		ActorID:   actor.ID,
		Payload: events.TicketDeletedPayload{
			TicketNumber: ticket.TicketNumber,
			UserID:       ticket.UserID,
			DeletedBy:    actor.ID,
		},
	})
	s.metrics.RecordLifecycle("delete", "ok")
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) fail(operation string, err error) error {
	s.metrics.RecordLifecycle(operation, util.CodeOf(err))
	return err
}
