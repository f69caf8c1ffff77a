// Package platform defines the narrow boundary to the chat-platform client:
// channel management, messaging, history paging, and actor resolution. The
// ticket engine only ever talks to the Client interface; the REST and
// gateway adapters live alongside it.
package platform

import (
	"context"
	"time"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

// Permission is a bit in a channel permission overwrite.
type Permission uint64

const (
	PermViewChannel Permission = 1 << iota
	PermSendMessages
	PermReadMessageHistory
	PermAttachFiles
	PermAddReactions
	PermManageChannels
)

// Overwrite grants and denies permissions for one role or user on a channel.
type Overwrite struct {
	TargetID string
	Allow    Permission
	Deny     Permission
}

// Channel is the subset of channel metadata the engine cares about.
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	ParentID string
	Category bool
}

// CreateChannelRequest asks the platform for a new restricted text channel.
type CreateChannelRequest struct {
	GuildID    string
	Name       string
	ParentID   string
	Overwrites []Overwrite
}

// Button is an interactive action affordance attached to a message.
type Button struct {
	CustomID string
	Label    string
	Style    string
	Emoji    string
}

// EmbedField is a labeled value inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is structured rich content on a message.
type Embed struct {
	Title       string
	Description string
	Fields      []EmbedField
	Footer      string
}

// File is an outbound message attachment.
type File struct {
	Name string
	Data []byte
}

// SendRequest is an outbound message.
type SendRequest struct {
	Content       string
	MentionRoleID string
	Embed         *Embed
	Buttons       []Button
	Files         []File
}

// Attachment references content attached to a fetched message.
type Attachment struct {
	Name        string
	URL         string
	ContentType string
}

// Author identifies the sender of a fetched message.
type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
	Bot         bool
}

// Message is one entry of a channel's history.
type Message struct {
	ID          string
	ChannelID   string
	Author      Author
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
	Embeds      []Embed
	System      bool
}

// Client is the chat-platform capability surface consumed by the ticket
// subsystem. Every call is a suspension point; implementations may block on
// network round trips.
type Client interface {
	// CreateChannel creates a restricted channel under the given category.
	CreateChannel(ctx context.Context, req CreateChannelRequest) (*Channel, error)
	// RenameChannel updates a channel's display name.
	RenameChannel(ctx context.Context, channelID, name string) error
	// EditChannelPermissions replaces one target's overwrite on a channel.
	EditChannelPermissions(ctx context.Context, channelID string, overwrite Overwrite) error
	// DeleteChannel destroys a channel.
	DeleteChannel(ctx context.Context, channelID string) error
	// SendMessage posts a message to a channel.
	SendMessage(ctx context.Context, channelID string, req SendRequest) (*Message, error)
	// MessagesBefore returns up to limit messages strictly older than
	// beforeID (all newest messages when beforeID is empty), newest first.
	MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error)
	// ChannelInfo fetches channel metadata.
	ChannelInfo(ctx context.Context, channelID string) (*Channel, error)
	// ResolveActor resolves a guild member into an actor with role
	// membership and administrative capability flags.
	ResolveActor(ctx context.Context, guildID, userID string) (domain.Actor, error)
}
