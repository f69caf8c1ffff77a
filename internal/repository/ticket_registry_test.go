package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/repository"
)

func ticket(guildID, channelID, userID string, number uint64) *domain.Ticket {
	return &domain.Ticket{
		GuildID:      guildID,
		ChannelID:    channelID,
		UserID:       userID,
		TicketNumber: number,
		CreatedAt:    time.Now(),
	}
}

func TestRegistryOpenLookups(t *testing.T) {
	r := repository.NewTicketRegistry()
	r.InsertOpen(ticket("g1", "c1", "u1", 1))
	r.InsertOpen(ticket("g1", "c2", "u2", 2))
	r.InsertOpen(ticket("g2", "c3", "u1", 1))

	got, ok := r.OpenByChannel("g1", "c1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)

	// lookups are guild scoped
	_, ok = r.OpenByChannel("g2", "c1")
	assert.False(t, ok)

	got, ok = r.OpenByUser("g1", "u2")
	require.True(t, ok)
	assert.Equal(t, "c2", got.ChannelID)

	_, ok = r.OpenByUser("g2", "u2")
	assert.False(t, ok)

	assert.Equal(t, 2, r.OpenCount("g1"))
	assert.Equal(t, 1, r.OpenCount("g2"))
}

func TestRegistryMoveSemantics(t *testing.T) {
	r := repository.NewTicketRegistry()
	r.InsertOpen(ticket("g1", "c1", "u1", 1))

	closedAt := time.Now()
	moved, ok := r.MoveToClosed("g1", "c1", closedAt, "mod-1")
	require.True(t, ok)
	assert.Equal(t, "c1", moved.ChannelID)

	// the move stamps the closure fields
	require.NotNil(t, moved.ClosedAt)
	assert.Equal(t, closedAt, *moved.ClosedAt)
	require.NotNil(t, moved.ClosedBy)
	assert.Equal(t, "mod-1", *moved.ClosedBy)

	// gone from open, present in closed, still reachable via ByChannel
	_, ok = r.OpenByChannel("g1", "c1")
	assert.False(t, ok)
	_, ok = r.OpenByUser("g1", "u1")
	assert.False(t, ok)
	closed, ok := r.ClosedByChannel("g1", "c1")
	require.True(t, ok)
	both, ok := r.ByChannel("g1", "c1")
	require.True(t, ok)
	assert.Same(t, closed, both)

	// double move is a no-op failure
	_, ok = r.MoveToClosed("g1", "c1", time.Now(), "mod-1")
	assert.False(t, ok)

	reopened, ok := r.MoveToOpen("g1", "c1")
	require.True(t, ok)
	assert.Same(t, moved, reopened)

	// reopening clears the closure fields
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.ClosedBy)
	_, ok = r.ClosedByChannel("g1", "c1")
	assert.False(t, ok)
	_, ok = r.OpenByChannel("g1", "c1")
	assert.True(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	r := repository.NewTicketRegistry()
	r.InsertOpen(ticket("g1", "c1", "u1", 1))
	r.InsertOpen(ticket("g1", "c2", "u2", 2))
	r.MoveToClosed("g1", "c2", time.Now(), "mod-1")

	_, ok := r.Remove("g1", "c1")
	assert.True(t, ok)
	_, ok = r.Remove("g1", "c2")
	assert.True(t, ok)
	_, ok = r.Remove("g1", "c1")
	assert.False(t, ok)
	_, ok = r.ByChannel("g1", "c2")
	assert.False(t, ok)
}

// Closure stamps and retention scans touch the same ticket fields; both
// must go through the registry lock so concurrent sweeps stay safe.
func TestRegistryConcurrentCloseReopenAndScan(t *testing.T) {
	r := repository.NewTicketRegistry()
	r.InsertOpen(ticket("g1", "c1", "u1", 1))

	cutoff := time.Now().Add(-time.Hour)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			r.ClosedBefore(func(tk *domain.Ticket) bool {
				return tk.ClosedAt != nil && tk.ClosedAt.Before(cutoff)
			})
		}
	}()
	for i := 0; i < 200; i++ {
		r.MoveToClosed("g1", "c1", time.Now(), "mod-1")
		r.MoveToOpen("g1", "c1")
	}
	<-done
}

func TestRegistryClosedBefore(t *testing.T) {
	r := repository.NewTicketRegistry()
	old := ticket("g1", "c1", "u1", 1)
	fresh := ticket("g1", "c2", "u2", 2)
	other := ticket("g2", "c3", "u3", 1)
	stamps := map[string]time.Time{
		"c1": time.Now().Add(-48 * time.Hour),
		"c2": time.Now(),
		"c3": time.Now().Add(-72 * time.Hour),
	}
	for _, tk := range []*domain.Ticket{old, fresh, other} {
		r.InsertOpen(tk)
		r.MoveToClosed(tk.GuildID, tk.ChannelID, stamps[tk.ChannelID], "mod-1")
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	matched := r.ClosedBefore(func(tk *domain.Ticket) bool {
		return tk.ClosedAt != nil && tk.ClosedAt.Before(cutoff)
	})

	require.Len(t, matched, 2)
	channels := []string{matched[0].ChannelID, matched[1].ChannelID}
	assert.ElementsMatch(t, []string{"c1", "c3"}, channels)
}
