package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultReason is stored when a ticket is opened without a stated reason.
const DefaultReason = "No reason provided"

// Ticket is the runtime record for one support channel. Tickets are never
// persisted; the registry owns their full lifetime.
type Ticket struct {
	ChannelID    string
	GuildID      string
	UserID       string
	Reason       string
	TicketNumber uint64
	CreatedAt    time.Time
	ClosedAt     *time.Time
	ClosedBy     *string
}

// TicketConfig is the persisted per-guild ticket settings document.
type TicketConfig struct {
	GuildID             string
	Enabled             bool
	CategoryID          *string
	SupportRoleID       *string
	PanelChannelID      *string
	TranscriptChannelID *string
	ModLogChannelID     *string
	TicketCounter       uint64
	CloseAfterHours     int
}

// DefaultTicketConfig returns the settings a guild starts with before any
// setup command has run.
func DefaultTicketConfig(guildID string) *TicketConfig {
	return &TicketConfig{
		GuildID:         guildID,
		Enabled:         false,
		CloseAfterHours: 24,
	}
}

// OpenChannelName derives the display name for an open ticket channel.
func OpenChannelName(ticketNumber uint64) string {
	return fmt.Sprintf("ticket-%04d", ticketNumber)
}

// MarkClosedName swaps an open-ticket name prefix for the closed prefix.
// The name is a cosmetic projection of registry state, never its source.
func MarkClosedName(name string) string {
	return strings.Replace(name, "ticket-", "closed-", 1)
}

// MarkOpenName reverts a closed-ticket name to its open form.
func MarkOpenName(name string) string {
	return strings.Replace(name, "closed-", "ticket-", 1)
}
