package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
)

// RetentionSweeper deletes closed tickets that have outlived their guild's
// close-after window. It runs on a cron schedule and drives the same delete
// path as a moderator would, acting as the bot itself.
type RetentionSweeper struct {
	tickets  *service.TicketService
	registry *repository.TicketRegistry
	configs  repository.TicketConfigRepository
	logger   *zap.Logger
	botID    string
	cron     *cron.Cron
	now      func() time.Time
}

// NewRetentionSweeper constructs the sweeper. Schedule it with Start.
func NewRetentionSweeper(
	tickets *service.TicketService,
	registry *repository.TicketRegistry,
	configs repository.TicketConfigRepository,
	botID string,
	logger *zap.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		tickets:  tickets,
		registry: registry,
		configs:  configs,
		logger:   logger,
		botID:    botID,
		now:      time.Now,
	}
}

// Start registers the sweep on the given cron spec and starts the scheduler.
func (s *RetentionSweeper) Start(spec string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep deletes every closed ticket past its guild's retention window.
// Each guild's window comes from its own config; a window of zero or less
// disables retention for that guild.
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	windows := make(map[string]time.Duration)
	now := s.now()

	expired := s.registry.ClosedBefore(func(ticket *domain.Ticket) bool {
		window, ok := windows[ticket.GuildID]
		if !ok {
			cfg, err := s.configs.Get(ctx, ticket.GuildID)
			if err != nil {
				return false
			}
			window = time.Duration(cfg.CloseAfterHours) * time.Hour
			windows[ticket.GuildID] = window
		}
		if window <= 0 || ticket.ClosedAt == nil {
			return false
		}
		return now.Sub(*ticket.ClosedAt) >= window
	})

	if len(expired) == 0 {
		return
	}
	s.logger.Info("retention sweep", zap.Int("expired", len(expired)))

	sweeper := domain.Actor{ID: s.botID, DisplayName: "ticket-bot", ManageChannels: true}
	for _, ticket := range expired {
		if _, err := s.tickets.Delete(ctx, ticket.GuildID, ticket.ChannelID, sweeper); err != nil {
			s.logger.Warn("retention delete failed",
				zap.String("guild_id", ticket.GuildID),
				zap.String("channel_id", ticket.ChannelID),
				zap.Error(err))
		}
	}
}
