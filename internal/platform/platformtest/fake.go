// Package platformtest provides a recording in-memory platform.Client for
// tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
)

// Sent records one SendMessage call.
type Sent struct {
	ChannelID string
	Request   platform.SendRequest
}

// Rename records one RenameChannel call.
type Rename struct {
	ChannelID string
	Name      string
}

// PermissionEdit records one EditChannelPermissions call.
type PermissionEdit struct {
	ChannelID string
	Overwrite platform.Overwrite
}

// Fake is an in-memory platform.Client that records every call and can be
// scripted to fail.
type Fake struct {
	mu sync.Mutex

	nextID   int
	channels map[string]*platform.Channel
	history  map[string][]platform.Message // oldest first
	actors   map[string]domain.Actor

	CreatedChannels []platform.CreateChannelRequest
	SentMessages    []Sent
	Renames         []Rename
	PermissionEdits []PermissionEdit
	DeletedChannels []string

	FailCreateChannel error
	FailSendMessage   error
	FailDeleteChannel error
	FailRename        error
}

// NewFake constructs an empty fake.
func NewFake() *Fake {
	return &Fake{
		channels: make(map[string]*platform.Channel),
		history:  make(map[string][]platform.Message),
		actors:   make(map[string]domain.Actor),
	}
}

// AddChannel seeds an existing channel (e.g. a category or transcript
// destination).
func (f *Fake) AddChannel(ch platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := ch
	f.channels[ch.ID] = &copied
}

// AddActor seeds actor resolution for a guild member.
func (f *Fake) AddActor(guildID string, actor domain.Actor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors[guildID+":"+actor.ID] = actor
}

// SeedHistory installs a channel's message history, oldest first. Message
// IDs are assigned in order when empty.
func (f *Fake) SeedHistory(channelID string, messages []platform.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range messages {
		if messages[i].ID == "" {
			f.nextID++
			messages[i].ID = strconv.Itoa(f.nextID)
		}
		messages[i].ChannelID = channelID
	}
	f.history[channelID] = append(f.history[channelID], messages...)
}

// CreateChannel records the request and materializes a channel.
func (f *Fake) CreateChannel(_ context.Context, req platform.CreateChannelRequest) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedChannels = append(f.CreatedChannels, req)
	if f.FailCreateChannel != nil {
		return nil, f.FailCreateChannel
	}
	f.nextID++
	ch := &platform.Channel{
		ID:       fmt.Sprintf("chan-%d", f.nextID),
		GuildID:  req.GuildID,
		Name:     req.Name,
		ParentID: req.ParentID,
	}
	f.channels[ch.ID] = ch
	return ch, nil
}

// RenameChannel records the rename.
func (f *Fake) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRename != nil {
		return f.FailRename
	}
	f.Renames = append(f.Renames, Rename{ChannelID: channelID, Name: name})
	if ch, ok := f.channels[channelID]; ok {
		ch.Name = name
	}
	return nil
}

// EditChannelPermissions records the overwrite.
func (f *Fake) EditChannelPermissions(_ context.Context, channelID string, overwrite platform.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionEdits = append(f.PermissionEdits, PermissionEdit{ChannelID: channelID, Overwrite: overwrite})
	return nil
}

// DeleteChannel records the deletion.
func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeleteChannel != nil {
		return f.FailDeleteChannel
	}
	f.DeletedChannels = append(f.DeletedChannels, channelID)
	delete(f.channels, channelID)
	return nil
}

// SendMessage records the message and appends it to the channel history.
func (f *Fake) SendMessage(_ context.Context, channelID string, req platform.SendRequest) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSendMessage != nil {
		return nil, f.FailSendMessage
	}
	f.SentMessages = append(f.SentMessages, Sent{ChannelID: channelID, Request: req})
	f.nextID++
	msg := platform.Message{
		ID:        strconv.Itoa(f.nextID),
		ChannelID: channelID,
		Content:   req.Content,
		Timestamp: time.Now(),
		Author:    platform.Author{ID: "bot", DisplayName: "ticket-bot", Bot: true},
	}
	if req.Embed != nil {
		msg.Embeds = []platform.Embed{*req.Embed}
	}
	f.history[channelID] = append(f.history[channelID], msg)
	return &msg, nil
}

// MessagesBefore returns a newest-first page older than the cursor.
func (f *Fake) MessagesBefore(_ context.Context, channelID, beforeID string, limit int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.history[channelID]

	end := len(history)
	if beforeID != "" {
		end = 0
		for i, msg := range history {
			if msg.ID == beforeID {
				end = i
				break
			}
		}
	}

	page := make([]platform.Message, 0, limit)
	for i := end - 1; i >= 0 && len(page) < limit; i-- {
		page = append(page, history[i])
	}
	return page, nil
}

// ChannelInfo returns seeded or created channel metadata.
func (f *Fake) ChannelInfo(_ context.Context, channelID string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	copied := *ch
	return &copied, nil
}

// ResolveActor returns the seeded actor, or a bare actor with no roles.
func (f *Fake) ResolveActor(_ context.Context, guildID, userID string) (domain.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if actor, ok := f.actors[guildID+":"+userID]; ok {
		return actor, nil
	}
	return domain.Actor{ID: userID, DisplayName: userID}, nil
}

// LastSent returns the most recent message sent to the channel, if any.
func (f *Fake) LastSent(channelID string) (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.SentMessages) - 1; i >= 0; i-- {
		if f.SentMessages[i].ChannelID == channelID {
			return f.SentMessages[i], true
		}
	}
	return Sent{}, false
}

var _ platform.Client = (*Fake)(nil)
