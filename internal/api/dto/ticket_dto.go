package dto

import "time"

// TokenRequest is the credential exchange payload.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateTicketRequest opens a ticket on behalf of a guild member.
type CreateTicketRequest struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
}

// TicketActionRequest identifies the acting member for close/reopen/delete/
// transcript calls.
type TicketActionRequest struct {
	GuildID string `json:"guild_id"`
	ActorID string `json:"actor_id"`
}

// TicketResponse is the API projection of a ticket.
type TicketResponse struct {
	ChannelID    string     `json:"channel_id"`
	GuildID      string     `json:"guild_id"`
	UserID       string     `json:"user_id"`
	Reason       string     `json:"reason"`
	TicketNumber uint64     `json:"ticket_number"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ClosedBy     *string    `json:"closed_by,omitempty"`
}

// TranscriptResponse reports a generated transcript.
type TranscriptResponse struct {
	MessageCount int    `json:"message_count"`
	DeliveredTo  string `json:"delivered_to"`
	FileName     string `json:"file_name"`
}

// SetChannelRequest points a config field at a channel or role.
type SetChannelRequest struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
}

// GuildActionRequest identifies the acting member for guild-level calls.
type GuildActionRequest struct {
	ActorID string `json:"actor_id"`
}

// ConfigResponse is the API projection of a guild's ticket configuration.
type ConfigResponse struct {
	GuildID             string  `json:"guild_id"`
	Enabled             bool    `json:"enabled"`
	CategoryID          *string `json:"category_id,omitempty"`
	SupportRoleID       *string `json:"support_role_id,omitempty"`
	PanelChannelID      *string `json:"panel_channel_id,omitempty"`
	TranscriptChannelID *string `json:"transcript_channel_id,omitempty"`
	ModLogChannelID     *string `json:"mod_log_channel_id,omitempty"`
	TicketCounter       uint64  `json:"ticket_counter"`
	CloseAfterHours     int     `json:"close_after_hours"`
}
