package repository

import (
	"sync"
	"time"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

// TicketRegistry holds the runtime-only open and closed ticket maps, scoped
// per guild and keyed by channel id. The lifecycle engine is its sole
// owner; nothing here is persisted.
type TicketRegistry struct {
	mu     sync.RWMutex
	open   map[string]map[string]*domain.Ticket
	closed map[string]map[string]*domain.Ticket
}

// NewTicketRegistry constructs empty registries.
func NewTicketRegistry() *TicketRegistry {
	return &TicketRegistry{
		open:   make(map[string]map[string]*domain.Ticket),
		closed: make(map[string]map[string]*domain.Ticket),
	}
}

// InsertOpen registers a newly created ticket.
func (r *TicketRegistry) InsertOpen(ticket *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open[ticket.GuildID] == nil {
		r.open[ticket.GuildID] = make(map[string]*domain.Ticket)
	}
	r.open[ticket.GuildID][ticket.ChannelID] = ticket
}

// OpenByChannel looks up an open ticket.
func (r *TicketRegistry) OpenByChannel(guildID, channelID string) (*domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.open[guildID][channelID]
	return ticket, ok
}

// ClosedByChannel looks up a closed ticket.
func (r *TicketRegistry) ClosedByChannel(guildID, channelID string) (*domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.closed[guildID][channelID]
	return ticket, ok
}

// ByChannel looks up a ticket in either registry.
func (r *TicketRegistry) ByChannel(guildID, channelID string) (*domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ticket, ok := r.open[guildID][channelID]; ok {
		return ticket, true
	}
	ticket, ok := r.closed[guildID][channelID]
	return ticket, ok
}

// OpenByUser scans the guild's open tickets for one owned by the user.
// Linear in the number of open tickets, which stays small per guild.
func (r *TicketRegistry) OpenByUser(guildID, userID string) (*domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.open[guildID] {
		if ticket.UserID == userID {
			return ticket, true
		}
	}
	return nil, false
}

// MoveToClosed moves a ticket from the open to the closed registry and
// stamps the closure fields. The stamp happens under the registry lock so
// concurrent ClosedBefore scans never observe a half-closed ticket. The
// entry is moved, not copied.
func (r *TicketRegistry) MoveToClosed(guildID, channelID string, closedAt time.Time, closedBy string) (*domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.open[guildID][channelID]
	if !ok {
		return nil, false
	}
	ticket.ClosedAt = &closedAt
	ticket.ClosedBy = &closedBy
	delete(r.open[guildID], channelID)
	if r.closed[guildID] == nil {
		r.closed[guildID] = make(map[string]*domain.Ticket)
	}
	r.closed[guildID][channelID] = ticket
	return ticket, true
}

// MoveToOpen moves a ticket from the closed back to the open registry,
// clearing the closure fields under the registry lock.
func (r *TicketRegistry) MoveToOpen(guildID, channelID string) (*domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.closed[guildID][channelID]
	if !ok {
		return nil, false
	}
	ticket.ClosedAt = nil
	ticket.ClosedBy = nil
	delete(r.closed[guildID], channelID)
	if r.open[guildID] == nil {
		r.open[guildID] = make(map[string]*domain.Ticket)
	}
	r.open[guildID][channelID] = ticket
	return ticket, true
}

// Remove deletes the ticket from whichever registry holds it.
func (r *TicketRegistry) Remove(guildID, channelID string) (*domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.open[guildID][channelID]; ok {
		delete(r.open[guildID], channelID)
		return ticket, true
	}
	if ticket, ok := r.closed[guildID][channelID]; ok {
		delete(r.closed[guildID], channelID)
		return ticket, true
	}
	return nil, false
}

// ClosedBefore returns the closed tickets of every guild whose ClosedAt is
// older than the cutoff. Used by the retention sweeper.
func (r *TicketRegistry) ClosedBefore(cutoff func(ticket *domain.Ticket) bool) []*domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.Ticket
	for _, tickets := range r.closed {
		for _, ticket := range tickets {
			if cutoff(ticket) {
				matched = append(matched, ticket)
			}
		}
	}
	return matched
}

// OpenCount reports the number of open tickets for a guild.
func (r *TicketRegistry) OpenCount(guildID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.open[guildID])
}
