package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketClosed         EventType = "ticket_closed"
	EventTicketReopened       EventType = "ticket_reopened"
	EventTicketDeleted        EventType = "ticket_deleted"
	EventTranscriptGenerated  EventType = "transcript_generated"
	EventTicketPanelPublished EventType = "ticket_panel_published"
)

// Event represents a lifecycle event emitted by the ticket engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber uint64 `json:"ticket_number"`
	UserID       string `json:"user_id"`
	Reason       string `json:"reason"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	TicketNumber uint64 `json:"ticket_number"`
	UserID       string `json:"user_id"`
	ClosedBy     string `json:"closed_by"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	TicketNumber uint64 `json:"ticket_number"`
	UserID       string `json:"user_id"`
	ReopenedBy   string `json:"reopened_by"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber uint64 `json:"ticket_number"`
	UserID       string `json:"user_id"`
	DeletedBy    string `json:"deleted_by"`
}

// TranscriptGeneratedPayload payload.
type TranscriptGeneratedPayload struct {
	TicketNumber  uint64 `json:"ticket_number"`
	MessageCount  int    `json:"message_count"`
	DeliveredToID string `json:"delivered_to_id"`
}
