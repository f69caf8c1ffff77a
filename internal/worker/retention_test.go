package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/platform/platformtest"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/internal/worker"
)

const guildID = "guild-1"

type sweeperFixture struct {
	sweeper  *worker.RetentionSweeper
	registry *repository.TicketRegistry
	configs  *repository.MemoryConfigRepository
	fake     *platformtest.Fake
	tickets  *service.TicketService
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	fake := platformtest.NewFake()
	fake.AddChannel(platform.Channel{ID: "cat-1", GuildID: guildID, Category: true})

	configs := repository.NewMemoryConfigRepository()
	cfg := domain.DefaultTicketConfig(guildID)
	cfg.Enabled = true
	category := "cat-1"
	cfg.CategoryID = &category
	require.NoError(t, configs.Upsert(context.Background(), cfg))

	registry := repository.NewTicketRegistry()
	tickets := service.NewTicketService(service.TicketDependencies{
		ConfigRepo: configs,
		Registry:   registry,
		Platform:   fake,
		BotUserID:  "bot-1",
	})
	return &sweeperFixture{
		sweeper:  worker.NewRetentionSweeper(tickets, registry, configs, "bot-1", zap.NewNop()),
		registry: registry,
		configs:  configs,
		fake:     fake,
		tickets:  tickets,
	}
}

func (f *sweeperFixture) closeAt(t *testing.T, channelID string, closedAt time.Time) {
	t.Helper()
	_, err := f.tickets.Close(context.Background(), guildID, channelID, domain.Actor{ID: "bot-1", ManageChannels: true})
	require.NoError(t, err)
	closed, ok := f.registry.ClosedByChannel(guildID, channelID)
	require.True(t, ok)
	closed.ClosedAt = &closedAt
}

func TestSweepDeletesExpiredClosedTickets(t *testing.T) {
	f := newSweeperFixture(t)

	stale, err := f.tickets.Create(context.Background(), guildID, domain.Actor{ID: "user-1"}, "old")
	require.NoError(t, err)
	fresh, err := f.tickets.Create(context.Background(), guildID, domain.Actor{ID: "user-2"}, "new")
	require.NoError(t, err)
	open, err := f.tickets.Create(context.Background(), guildID, domain.Actor{ID: "user-3"}, "still open")
	require.NoError(t, err)

	f.closeAt(t, stale.ChannelID, time.Now().Add(-48*time.Hour))
	f.closeAt(t, fresh.ChannelID, time.Now().Add(-time.Hour))

	f.sweeper.Sweep(context.Background())

	_, ok := f.registry.ByChannel(guildID, stale.ChannelID)
	assert.False(t, ok, "stale closed ticket should be swept")
	_, ok = f.registry.ClosedByChannel(guildID, fresh.ChannelID)
	assert.True(t, ok, "fresh closed ticket must survive")
	_, ok = f.registry.OpenByChannel(guildID, open.ChannelID)
	assert.True(t, ok, "open tickets are never swept")

	assert.Eventually(t, func() bool {
		_, err := f.fake.ChannelInfo(context.Background(), stale.ChannelID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSweepSkipsGuildsWithRetentionDisabled(t *testing.T) {
	f := newSweeperFixture(t)

	ticket, err := f.tickets.Create(context.Background(), guildID, domain.Actor{ID: "user-1"}, "old")
	require.NoError(t, err)
	f.closeAt(t, ticket.ChannelID, time.Now().Add(-1000*time.Hour))

	cfg, err := f.configs.Get(context.Background(), guildID)
	require.NoError(t, err)
	cfg.CloseAfterHours = 0
	require.NoError(t, f.configs.Upsert(context.Background(), cfg))

	f.sweeper.Sweep(context.Background())

	_, ok := f.registry.ClosedByChannel(guildID, ticket.ChannelID)
	assert.True(t, ok, "retention disabled guilds keep closed tickets")
}
