package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/observability"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/internal/platform/platformtest"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
	"github.com/spec-kit/guild-ticket-bot/internal/service"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

const (
	testGuild    = "guild-1"
	testCategory = "cat-1"
	testBotID    = "bot-1"
	supportRole  = "role-support"
)

type fixture struct {
	service  *service.TicketService
	fake     *platformtest.Fake
	configs  *repository.MemoryConfigRepository
	registry *repository.TicketRegistry
	metrics  *observability.Metrics
	events   *recordingDispatcher
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := platformtest.NewFake()
	configs := repository.NewMemoryConfigRepository()
	registry := repository.NewTicketRegistry()
	metrics := observability.NewMetrics()
	dispatcher := &recordingDispatcher{}
	svc := service.NewTicketService(service.TicketDependencies{
		ConfigRepo: configs,
		Registry:   registry,
		Platform:   fake,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		BotUserID:  testBotID,
	})
	return &fixture{
		service:  svc,
		fake:     fake,
		configs:  configs,
		registry: registry,
		metrics:  metrics,
		events:   dispatcher,
	}
}

func (f *fixture) enableGuild(t *testing.T, mutate func(cfg *domain.TicketConfig)) {
	t.Helper()
	f.fake.AddChannel(platform.Channel{ID: testCategory, GuildID: testGuild, Name: "Tickets", Category: true})
	cfg := domain.DefaultTicketConfig(testGuild)
	cfg.Enabled = true
	categoryID := testCategory
	cfg.CategoryID = &categoryID
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, f.configs.Upsert(context.Background(), cfg))
}

func member(id string) domain.Actor {
	return domain.Actor{ID: id, DisplayName: id}
}

func supporter(id string) domain.Actor {
	return domain.Actor{ID: id, DisplayName: id, RoleIDs: []string{supportRole}}
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, func(cfg *domain.TicketConfig) {
		roleID := supportRole
		cfg.SupportRoleID = &roleID
	})

	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "billing issue")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), ticket.TicketNumber)
	assert.Equal(t, testGuild, ticket.GuildID)
	assert.Equal(t, "user-1", ticket.UserID)
	assert.Equal(t, "billing issue", ticket.Reason)
	assert.Nil(t, ticket.ClosedAt)

	stored, ok := f.registry.OpenByChannel(testGuild, ticket.ChannelID)
	require.True(t, ok)
	assert.Equal(t, ticket, stored)

	require.Len(t, f.fake.CreatedChannels, 1)
	req := f.fake.CreatedChannels[0]
	assert.Equal(t, "ticket-0001", req.Name)
	assert.Equal(t, testCategory, req.ParentID)

	// everyone denied, owner, bot and support role allowed
	require.Len(t, req.Overwrites, 4)
	assert.Equal(t, testGuild, req.Overwrites[0].TargetID)
	assert.Equal(t, platform.PermViewChannel, req.Overwrites[0].Deny)
	assert.Equal(t, "user-1", req.Overwrites[1].TargetID)
	assert.Equal(t, testBotID, req.Overwrites[2].TargetID)
	assert.NotZero(t, req.Overwrites[2].Allow&platform.PermManageChannels)
	assert.Equal(t, supportRole, req.Overwrites[3].TargetID)

	welcome, ok := f.fake.LastSent(ticket.ChannelID)
	require.True(t, ok)
	assert.Equal(t, "Ticket #0001", welcome.Request.Embed.Title)
	assert.Equal(t, supportRole, welcome.Request.MentionRoleID)
	require.Len(t, welcome.Request.Buttons, 2)
	assert.Equal(t, "close_ticket", welcome.Request.Buttons[0].CustomID)

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.events.types())
	assert.Equal(t, int64(1), f.metrics.LifecycleCount("create", "ok"))
}

func TestCreateDefaultsReason(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultReason, ticket.Reason)
}

func TestCreateNotConfigured(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	assert.Equal(t, util.CodeNotConfigured, util.CodeOf(err))
	assert.Empty(t, f.fake.CreatedChannels)
}

func TestCreateCategoryVanished(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	// config still points at it, but the channel is gone
	require.NoError(t, f.fake.DeleteChannel(context.Background(), testCategory))

	_, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	assert.Equal(t, util.CodeNotConfigured, util.CodeOf(err))
}

func TestCreateDuplicate(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	first, err := f.service.Create(context.Background(), testGuild, member("user-1"), "one")
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), testGuild, member("user-1"), "two")
	assert.Equal(t, util.CodeDuplicateTicket, util.CodeOf(err))
	existing, ok := util.ExistingChannelID(err)
	require.True(t, ok)
	assert.Equal(t, first.ChannelID, existing)

	// close frees the slot
	_, err = f.service.Close(context.Background(), testGuild, first.ChannelID, member("user-1"))
	require.NoError(t, err)

	second, err := f.service.Create(context.Background(), testGuild, member("user-1"), "two")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.TicketNumber)
}

func TestCreateNumbersAreMonotonic(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	for i, user := range []string{"user-1", "user-2", "user-3"} {
		ticket, err := f.service.Create(context.Background(), testGuild, member(user), "help")
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), ticket.TicketNumber)
	}
}

func TestCreateFailureLeavesCounterGap(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	f.fake.FailCreateChannel = errors.New("api down")
	_, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	assert.Equal(t, util.CodeExternalFailed, util.CodeOf(err))
	_, ok := f.registry.OpenByUser(testGuild, "user-1")
	assert.False(t, ok)

	// the consumed number is not reused
	f.fake.FailCreateChannel = nil
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ticket.TicketNumber)
}

func TestCreateSurvivesWelcomeFailure(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	f.fake.FailSendMessage = errors.New("message api down")
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)
	_, ok := f.registry.OpenByChannel(testGuild, ticket.ChannelID)
	assert.True(t, ok)
}

func TestConcurrentCreatesYieldOneTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case util.CodeOf(err) == util.CodeDuplicateTicket:
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
	assert.Equal(t, 1, f.registry.OpenCount(testGuild))
}

func TestCloseTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	closed, err := f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, "user-1", *closed.ClosedBy)

	_, open := f.registry.OpenByChannel(testGuild, ticket.ChannelID)
	assert.False(t, open)
	_, ok := f.registry.ClosedByChannel(testGuild, ticket.ChannelID)
	assert.True(t, ok)

	require.Len(t, f.fake.Renames, 1)
	assert.Equal(t, "closed-0001", f.fake.Renames[0].Name)

	require.Len(t, f.fake.PermissionEdits, 1)
	edit := f.fake.PermissionEdits[0]
	assert.Equal(t, "user-1", edit.Overwrite.TargetID)
	assert.Equal(t, platform.PermSendMessages|platform.PermAddReactions, edit.Overwrite.Deny)
	// the edit replaces the owner's whole overwrite, so the read-side
	// allows must carry over or the owner loses sight of the channel
	assert.Equal(t, platform.PermViewChannel|platform.PermReadMessageHistory|platform.PermAttachFiles, edit.Overwrite.Allow)

	notice, ok := f.fake.LastSent(ticket.ChannelID)
	require.True(t, ok)
	assert.Equal(t, "Ticket Closed", notice.Request.Embed.Title)
	require.Len(t, notice.Request.Buttons, 3)
}

func TestCloseRequiresTicketChannel(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	_, err := f.service.Close(context.Background(), testGuild, "random-channel", member("user-1"))
	assert.Equal(t, util.CodeNotATicket, util.CodeOf(err))
}

func TestCloseForbiddenForStrangers(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, func(cfg *domain.TicketConfig) {
		roleID := supportRole
		cfg.SupportRoleID = &roleID
	})
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-2"))
	assert.Equal(t, util.CodeForbidden, util.CodeOf(err))

	// nothing mutated
	stored, ok := f.registry.OpenByChannel(testGuild, ticket.ChannelID)
	require.True(t, ok)
	assert.Nil(t, stored.ClosedAt)
	assert.Empty(t, f.fake.Renames)

	// support role and manage-channels both clear the gate
	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, supporter("user-3"))
	require.NoError(t, err)
}

func TestReopenTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "my reason")
	require.NoError(t, err)
	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	reopened, err := f.service.Reopen(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.ClosedBy)

	// identity survives the round trip
	assert.Equal(t, uint64(1), reopened.TicketNumber)
	assert.Equal(t, "my reason", reopened.Reason)
	assert.Equal(t, "user-1", reopened.UserID)
	assert.Equal(t, ticket.CreatedAt, reopened.CreatedAt)

	_, ok := f.registry.OpenByChannel(testGuild, ticket.ChannelID)
	assert.True(t, ok)

	require.Len(t, f.fake.Renames, 2)
	assert.Equal(t, "ticket-0001", f.fake.Renames[1].Name)

	edit := f.fake.PermissionEdits[len(f.fake.PermissionEdits)-1]
	assert.Equal(t, "user-1", edit.Overwrite.TargetID)
	assert.Equal(t, platform.PermViewChannel|platform.PermSendMessages|platform.PermReadMessageHistory|platform.PermAttachFiles, edit.Overwrite.Allow)
	assert.Zero(t, edit.Overwrite.Deny)
}

// Permission edits replace the target's whole overwrite. Replaying the
// recorded edits over the create-time overwrite must leave the owner able
// to see the closed channel, and a reopen must restore exactly the
// overwrite the owner started with.
func TestCloseReopenOverwriteRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	require.Len(t, f.fake.CreatedChannels, 1)
	var original platform.Overwrite
	for _, ow := range f.fake.CreatedChannels[0].Overwrites {
		if ow.TargetID == "user-1" {
			original = ow
		}
	}
	require.NotZero(t, original.Allow&platform.PermViewChannel)

	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	owner := original
	for _, edit := range f.fake.PermissionEdits {
		if edit.ChannelID == ticket.ChannelID && edit.Overwrite.TargetID == "user-1" {
			owner = edit.Overwrite
		}
	}
	require.NotZero(t, owner.Allow&platform.PermViewChannel)
	assert.NotZero(t, owner.Deny&platform.PermSendMessages)

	_, err = f.service.Reopen(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	owner = original
	for _, edit := range f.fake.PermissionEdits {
		if edit.ChannelID == ticket.ChannelID && edit.Overwrite.TargetID == "user-1" {
			owner = edit.Overwrite
		}
	}
	assert.Equal(t, original, owner)
}

func TestReopenRequiresClosedTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	// still open
	_, err = f.service.Reopen(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	assert.Equal(t, util.CodeNotATicket, util.CodeOf(err))
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	_, err = f.service.Delete(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	_, ok := f.registry.ByChannel(testGuild, ticket.ChannelID)
	assert.False(t, ok)

	notice, ok := f.fake.LastSent(ticket.ChannelID)
	require.True(t, ok)
	assert.Equal(t, "Ticket Deleted", notice.Request.Embed.Title)

	// channel destruction happens after the grace delay
	require.Eventually(t, func() bool {
		_, err := f.fake.ChannelInfo(context.Background(), ticket.ChannelID)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	// deletion is terminal
	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	assert.Equal(t, util.CodeNotATicket, util.CodeOf(err))
	_, err = f.service.Reopen(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	assert.Equal(t, util.CodeNotATicket, util.CodeOf(err))
	_, err = f.service.Transcript(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	assert.Equal(t, util.CodeNotATicket, util.CodeOf(err))
}

func TestDeleteWorksOnClosedTickets(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)
	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	_, err = f.service.Delete(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)
	_, ok := f.registry.ByChannel(testGuild, ticket.ChannelID)
	assert.False(t, ok)
}

func TestDeleteChannelFailureIsNotResurrected(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)
	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)

	f.fake.FailDeleteChannel = errors.New("api down")
	_, err = f.service.Delete(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	// registry entry stays gone even though the channel outlived us
	_, ok := f.registry.ByChannel(testGuild, ticket.ChannelID)
	assert.False(t, ok)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	f := newFixture(t)
	f.enableGuild(t, nil)

	ticket, err := f.service.Create(context.Background(), testGuild, member("user-1"), "help")
	require.NoError(t, err)
	_, err = f.service.Close(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)
	_, err = f.service.Reopen(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)
	_, err = f.service.Delete(context.Background(), testGuild, ticket.ChannelID, member("user-1"))
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventTicketDeleted,
	}, f.events.types())
}
