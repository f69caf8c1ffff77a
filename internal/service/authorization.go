package service

import "github.com/spec-kit/guild-ticket-bot/internal/domain"

// CanActOnTicket decides whether the actor may close, reopen or delete the
// ticket: the ticket owner always may, a configured support-role holder
// may, and so may anyone with the manage-channels administrative override.
func CanActOnTicket(actor domain.Actor, ticket *domain.Ticket, cfg *domain.TicketConfig) bool {
	if ticket == nil {
		return false
	}
	if actor.ID == ticket.UserID {
		return true
	}
	if cfg != nil && cfg.SupportRoleID != nil && actor.HasRole(*cfg.SupportRoleID) {
		return true
	}
	return actor.ManageChannels
}
