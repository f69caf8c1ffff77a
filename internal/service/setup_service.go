package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// SetupService manages the per-guild ticket configuration surface: enabling
// the system, choosing the category, support role, panel and transcript
// destinations.
type SetupService struct {
	configs    repository.TicketConfigRepository
	client     platform.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// SetupDependencies bundles collaborators for the setup service.
type SetupDependencies struct {
	ConfigRepo repository.TicketConfigRepository
	Platform   platform.Client
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewSetupService constructs the service.
func NewSetupService(deps SetupDependencies) *SetupService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetupService{
		configs:    deps.ConfigRepo,
		client:     deps.Platform,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SetCategory points ticket creation at a channel category and enables the
// system.
func (s *SetupService) SetCategory(ctx context.Context, guildID string, actor domain.Actor, categoryID string) (*domain.TicketConfig, error) {
	if !actor.ManageChannels {
		return nil, util.NewForbidden("you need the manage channels permission")
	}
	info, err := s.client.ChannelInfo(ctx, categoryID)
	if err != nil || !info.Category {
		return nil, util.NewValidationError("not a valid category channel", map[string]any{"category_id": categoryID})
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	cfg.CategoryID = &categoryID
	cfg.Enabled = true
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}

// SetSupportRole designates the role granted elevated access to all
// tickets and mentioned on creation.
func (s *SetupService) SetSupportRole(ctx context.Context, guildID string, actor domain.Actor, roleID string) (*domain.TicketConfig, error) {
	if !actor.ManageGuild {
		return nil, util.NewForbidden("you need the manage guild permission")
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	cfg.SupportRoleID = &roleID
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}

// SetTranscriptChannel chooses where archival transcripts are delivered.
func (s *SetupService) SetTranscriptChannel(ctx context.Context, guildID string, actor domain.Actor, channelID string) (*domain.TicketConfig, error) {
	if !actor.ManageGuild {
		return nil, util.NewForbidden("you need the manage guild permission")
	}
	if _, err := s.client.ChannelInfo(ctx, channelID); err != nil {
		return nil, util.NewValidationError("not a valid channel", map[string]any{"channel_id": channelID})
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	cfg.TranscriptChannelID = &channelID
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}

// SetModLogChannel chooses where lifecycle audit notices are posted.
func (s *SetupService) SetModLogChannel(ctx context.Context, guildID string, actor domain.Actor, channelID string) (*domain.TicketConfig, error) {
	if !actor.ManageGuild {
		return nil, util.NewForbidden("you need the manage guild permission")
	}
	if _, err := s.client.ChannelInfo(ctx, channelID); err != nil {
		return nil, util.NewValidationError("not a valid channel", map[string]any{"channel_id": channelID})
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	cfg.ModLogChannelID = &channelID
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}

// PublishPanel posts the "create ticket" entry point into a channel and
// remembers it as the panel channel.
func (s *SetupService) PublishPanel(ctx context.Context, guildID string, actor domain.Actor, channelID string) (*domain.TicketConfig, error) {
	if !actor.ManageChannels {
		return nil, util.NewForbidden("you need the manage channels permission")
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if !cfg.Enabled {
		return nil, util.NewNotConfigured("ticket system is not enabled; set a category first")
	}

	panel := platform.SendRequest{
		Embed: &platform.Embed{
			Title: "Support Tickets",
			Description: "Need help? Create a support ticket and our team will assist you!\n\n" +
				"**How it works:**\n• Click the button below to create a ticket\n" +
				"• A private channel will be created for you\n" +
				"• Our support team will help you there\n" +
				"• Close the ticket when your issue is resolved",
			Footer: "Click the button below to create a ticket",
		},
		Buttons: []platform.Button{
			{CustomID: "create_ticket", Label: "Create Ticket", Style: "primary", Emoji: "🎫"},
		},
	}
	if _, err := s.client.SendMessage(ctx, channelID, panel); err != nil {
		return nil, util.NewExternalFailed("failed to publish ticket panel", err)
	}

	cfg.PanelChannelID = &channelID
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventTicketPanelPublished,
			GuildID:   guildID,
			ChannelID: channelID,
			ActorID:   actor.ID,
		})
	}
	return cfg, nil
}

// Disable turns ticket creation off without discarding the configuration.
func (s *SetupService) Disable(ctx context.Context, guildID string, actor domain.Actor) (*domain.TicketConfig, error) {
	if !actor.ManageGuild {
		return nil, util.NewForbidden("you need the manage guild permission")
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	cfg.Enabled = false
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}

// View returns the guild's current configuration.
func (s *SetupService) View(ctx context.Context, guildID string, actor domain.Actor) (*domain.TicketConfig, error) {
	if !actor.ManageGuild {
		return nil, util.NewForbidden("you need the manage guild permission")
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return cfg, nil
}
