package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

// RESTConfig configures the REST adapter.
type RESTConfig struct {
	BaseURL  string
	BotToken string
	Timeout  time.Duration
}

// RESTClient implements Client against the platform's HTTP API.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewRESTClient constructs the adapter.
func NewRESTClient(cfg RESTConfig, logger *zap.Logger) *RESTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTClient{
		baseURL: cfg.BaseURL,
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type restChannel struct {
	ID       string `json:"id"`
	GuildID  string `json:"guild_id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Type     string `json:"type"`
}

type restOverwrite struct {
	TargetID string `json:"target_id"`
	Allow    uint64 `json:"allow"`
	Deny     uint64 `json:"deny"`
}

type restMessage struct {
	ID        string       `json:"id"`
	ChannelID string       `json:"channel_id"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	System    bool         `json:"system"`
	Author    restAuthor   `json:"author"`
	Attached  []restAttach `json:"attachments"`
	Embeds    []restEmbed  `json:"embeds"`
}

type restAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bot         bool   `json:"bot"`
}

type restAttach struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type restEmbed struct {
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Footer      string           `json:"footer,omitempty"`
	Fields      []restEmbedField `json:"fields,omitempty"`
}

type restEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type restMember struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	RoleIDs     []string `json:"role_ids"`
	Permissions []string `json:"permissions"`
}

// CreateChannel creates a restricted text channel under a category.
func (c *RESTClient) CreateChannel(ctx context.Context, req CreateChannelRequest) (*Channel, error) {
	overwrites := make([]restOverwrite, 0, len(req.Overwrites))
	for _, ow := range req.Overwrites {
		overwrites = append(overwrites, restOverwrite{TargetID: ow.TargetID, Allow: uint64(ow.Allow), Deny: uint64(ow.Deny)})
	}
	payload := map[string]any{
		"name":                  req.Name,
		"type":                  "text",
		"parent_id":             req.ParentID,
		"permission_overwrites": overwrites,
	}
	var out restChannel
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%s/channels", req.GuildID), payload, &out); err != nil {
		return nil, err
	}
	return channelFromREST(out), nil
}

// RenameChannel updates the channel display name.
func (c *RESTClient) RenameChannel(ctx context.Context, channelID, name string) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID, map[string]any{"name": name}, nil)
}

// EditChannelPermissions replaces a single overwrite on the channel.
func (c *RESTClient) EditChannelPermissions(ctx context.Context, channelID string, overwrite Overwrite) error {
	payload := restOverwrite{TargetID: overwrite.TargetID, Allow: uint64(overwrite.Allow), Deny: uint64(overwrite.Deny)}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%s/permissions/%s", channelID, overwrite.TargetID), payload, nil)
}

// DeleteChannel destroys the channel.
func (c *RESTClient) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil)
}

// SendMessage posts a message, using multipart when files are attached.
func (c *RESTClient) SendMessage(ctx context.Context, channelID string, req SendRequest) (*Message, error) {
	payload := map[string]any{"content": req.Content}
	if req.MentionRoleID != "" {
		payload["mention_role_id"] = req.MentionRoleID
	}
	if req.Embed != nil {
		payload["embed"] = embedToREST(*req.Embed)
	}
	if len(req.Buttons) > 0 {
		buttons := make([]map[string]string, 0, len(req.Buttons))
		for _, b := range req.Buttons {
			buttons = append(buttons, map[string]string{
				"custom_id": b.CustomID,
				"label":     b.Label,
				"style":     b.Style,
				"emoji":     b.Emoji,
			})
		}
		payload["buttons"] = buttons
	}

	path := fmt.Sprintf("/channels/%s/messages", channelID)
	var out restMessage
	if len(req.Files) == 0 {
		if err := c.do(ctx, http.MethodPost, path, payload, &out); err != nil {
			return nil, err
		}
		return messageFromREST(out), nil
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	meta, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("payload_json", string(meta)); err != nil {
		return nil, err
	}
	for i, file := range req.Files {
		part, err := writer.CreateFormFile(fmt.Sprintf("files[%d]", i), file.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	if err := c.doRaw(ctx, http.MethodPost, path, writer.FormDataContentType(), body, &out); err != nil {
		return nil, err
	}
	return messageFromREST(out), nil
}

// MessagesBefore fetches one reverse-chronological history page.
func (c *RESTClient) MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeID != "" {
		query.Set("before", beforeID)
	}
	var out []restMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%s/messages?%s", channelID, query.Encode()), nil, &out); err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(out))
	for _, m := range out {
		messages = append(messages, *messageFromREST(m))
	}
	return messages, nil
}

// ChannelInfo fetches channel metadata.
func (c *RESTClient) ChannelInfo(ctx context.Context, channelID string) (*Channel, error) {
	var out restChannel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &out); err != nil {
		return nil, err
	}
	return channelFromREST(out), nil
}

// ResolveActor loads a member's roles and capability flags.
func (c *RESTClient) ResolveActor(ctx context.Context, guildID, userID string) (domain.Actor, error) {
	var out restMember
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/members/%s", guildID, userID), nil, &out); err != nil {
		return domain.Actor{}, err
	}
	actor := domain.Actor{
		ID:          out.ID,
		DisplayName: out.DisplayName,
		RoleIDs:     out.RoleIDs,
	}
	for _, perm := range out.Permissions {
		switch perm {
		case "manage_channels":
			actor.ManageChannels = true
		case "manage_guild":
			actor.ManageGuild = true
		}
	}
	return actor, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}
	return c.doRaw(ctx, method, path, "application/json", body, out)
}

func (c *RESTClient) doRaw(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("platform request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("platform %s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func channelFromREST(ch restChannel) *Channel {
	return &Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		Name:     ch.Name,
		ParentID: ch.ParentID,
		Category: ch.Type == "category",
	}
}

func embedToREST(embed Embed) restEmbed {
	fields := make([]restEmbedField, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		fields = append(fields, restEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return restEmbed{Title: embed.Title, Description: embed.Description, Footer: embed.Footer, Fields: fields}
}

func messageFromREST(m restMessage) *Message {
	attachments := make([]Attachment, 0, len(m.Attached))
	for _, att := range m.Attached {
		attachments = append(attachments, Attachment{Name: att.Name, URL: att.URL, ContentType: att.ContentType})
	}
	embeds := make([]Embed, 0, len(m.Embeds))
	for _, e := range m.Embeds {
		fields := make([]EmbedField, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		embeds = append(embeds, Embed{Title: e.Title, Description: e.Description, Footer: e.Footer, Fields: fields})
	}
	return &Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		System:    m.System,
		Author: Author{
			ID:          m.Author.ID,
			DisplayName: m.Author.DisplayName,
			AvatarURL:   m.Author.AvatarURL,
			Bot:         m.Author.Bot,
		},
		Attachments: attachments,
		Embeds:      embeds,
	}
}
