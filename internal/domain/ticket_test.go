package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "ticket-0001", domain.OpenChannelName(1))
	assert.Equal(t, "ticket-0042", domain.OpenChannelName(42))
	assert.Equal(t, "ticket-12345", domain.OpenChannelName(12345))

	assert.Equal(t, "closed-0042", domain.MarkClosedName("ticket-0042"))
	assert.Equal(t, "ticket-0042", domain.MarkOpenName("closed-0042"))

	// round trip is stable
	name := domain.OpenChannelName(7)
	assert.Equal(t, name, domain.MarkOpenName(domain.MarkClosedName(name)))
}

func TestDefaultTicketConfig(t *testing.T) {
	cfg := domain.DefaultTicketConfig("g1")
	assert.Equal(t, "g1", cfg.GuildID)
	assert.False(t, cfg.Enabled)
	assert.Nil(t, cfg.CategoryID)
	assert.Nil(t, cfg.SupportRoleID)
	assert.Zero(t, cfg.TicketCounter)
	assert.Equal(t, 24, cfg.CloseAfterHours)
}

func TestActorHasRole(t *testing.T) {
	actor := domain.Actor{ID: "u1", RoleIDs: []string{"a", "b"}}
	assert.True(t, actor.HasRole("a"))
	assert.True(t, actor.HasRole("b"))
	assert.False(t, actor.HasRole("c"))
	assert.False(t, domain.Actor{}.HasRole("a"))
}
