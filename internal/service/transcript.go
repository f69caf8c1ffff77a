package service

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
	"github.com/spec-kit/guild-ticket-bot/internal/events"
	"github.com/spec-kit/guild-ticket-bot/internal/platform"
	"github.com/spec-kit/guild-ticket-bot/pkg/util"
)

// TranscriptResult reports where the archival document went.
type TranscriptResult struct {
	MessageCount int
	DeliveredTo  string
	FileName     string
}

// Transcript archives the full message history of a tracked ticket channel
// as a self-contained HTML document and delivers it to the guild's
// transcript channel, falling back to the ticket channel itself. It never
// changes ticket state.
func (s *TicketService) Transcript(ctx context.Context, guildID, channelID string, requester domain.Actor) (*TranscriptResult, error) {
	ticket, ok := s.registry.ByChannel(guildID, channelID)
	if !ok {
		return nil, s.fail("transcript", util.NewNotATicket())
	}

	messages, err := s.fetchFullHistory(ctx, channelID)
	if err != nil {
		return nil, s.fail("transcript", util.NewExternalFailed("failed to fetch channel history", err))
	}

	channelName := domain.OpenChannelName(ticket.TicketNumber)
	if info, err := s.client.ChannelInfo(ctx, channelID); err == nil {
		channelName = info.Name
	}

	document, err := renderTranscript(transcriptData{
		GuildID:     guildID,
		ChannelName: channelName,
		RequestedBy: requester.DisplayName,
		GeneratedAt: time.Now(),
		Messages:    messages,
	})
	if err != nil {
		return nil, s.fail("transcript", util.NewInternalError(err))
	}

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, s.fail("transcript", util.NewInternalError(err))
	}
	target := channelID
	if cfg.TranscriptChannelID != nil {
		if _, err := s.client.ChannelInfo(ctx, *cfg.TranscriptChannelID); err == nil {
			target = *cfg.TranscriptChannelID
		}
	}

	fileName := fmt.Sprintf("transcript-%s-%d.html", channelName, time.Now().Unix())
	send := platform.SendRequest{
		Embed: &platform.Embed{
			Title:       "Ticket Transcript",
			Description: fmt.Sprintf("HTML transcript generated for <#%s>", channelID),
			Fields: []platform.EmbedField{
				{Name: "Requested by", Value: requester.DisplayName, Inline: true},
				{Name: "Messages", Value: strconv.Itoa(len(messages)), Inline: true},
			},
			Footer: "HTML transcript ready for web hosting",
		},
		Files: []platform.File{{Name: fileName, Data: []byte(document)}},
	}
	if _, err := s.client.SendMessage(ctx, target, send); err != nil {
		return nil, s.fail("transcript", util.NewExternalFailed("failed to deliver transcript", err))
	}
	if target != channelID {
		if _, err := s.client.SendMessage(ctx, channelID, platform.SendRequest{
			Content: "📄 HTML transcript has been saved and sent to the transcript channel.",
		}); err != nil {
			s.logger.Warn("transcript pointer notice failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTranscriptGenerated,
		GuildID:   guildID,
		ChannelID: channelID,
		ActorID:   requester.ID,
		Payload: events.TranscriptGeneratedPayload{
			TicketNumber:  ticket.TicketNumber,
			MessageCount:  len(messages),
			DeliveredToID: target,
		},
	})
	s.metrics.RecordLifecycle("transcript", "ok")
	return &TranscriptResult{MessageCount: len(messages), DeliveredTo: target, FileName: fileName}, nil
}

// fetchFullHistory pages backward through the channel's message feed until
// exhausted and returns the messages oldest first. There is no upper bound;
// large channels simply take longer.
func (s *TicketService) fetchFullHistory(ctx context.Context, channelID string) ([]platform.Message, error) {
	var newestFirst []platform.Message
	before := ""
	for {
		page, err := s.client.MessagesBefore(ctx, channelID, before, s.historyPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		newestFirst = append(newestFirst, page...)
		before = page[len(page)-1].ID
	}

	chronological := make([]platform.Message, len(newestFirst))
	for i, msg := range newestFirst {
		chronological[len(newestFirst)-1-i] = msg
	}
	return chronological, nil
}

type transcriptData struct {
	GuildID     string
	ChannelName string
	RequestedBy string
	GeneratedAt time.Time
	Messages    []platform.Message
}

type transcriptMessage struct {
	Author      string
	AvatarURL   string
	Bot         bool
	System      bool
	Timestamp   string
	ContentHTML string
	Attachments []transcriptAttachment
	Embeds      []transcriptEmbed
}

type transcriptAttachment struct {
	Name  string
	URL   string
	Image bool
}

type transcriptEmbed struct {
	Title       string
	Description string
}

var transcriptTemplate = pongo2.Must(pongo2.FromString(transcriptHTML))

func renderTranscript(data transcriptData) (string, error) {
	views := make([]transcriptMessage, 0, len(data.Messages))
	for _, msg := range data.Messages {
		view := transcriptMessage{
			Author:      msg.Author.DisplayName,
			AvatarURL:   msg.Author.AvatarURL,
			Bot:         msg.Author.Bot,
			System:      msg.System,
			Timestamp:   msg.Timestamp.Format("2006-01-02 15:04:05"),
			ContentHTML: contentToHTML(msg.Content),
		}
		for _, att := range msg.Attachments {
			view.Attachments = append(view.Attachments, transcriptAttachment{
				Name:  att.Name,
				URL:   att.URL,
				Image: strings.HasPrefix(att.ContentType, "image/"),
			})
		}
		for _, embed := range msg.Embeds {
			view.Embeds = append(view.Embeds, transcriptEmbed{
				Title:       embed.Title,
				Description: embed.Description,
			})
		}
		views = append(views, view)
	}

	return transcriptTemplate.Execute(pongo2.Context{
		"guild_id":     data.GuildID,
		"channel_name": data.ChannelName,
		"requested_by": data.RequestedBy,
		"generated_at": data.GeneratedAt.Format("2006-01-02 15:04:05"),
		"messages":     views,
		"total":        len(views),
	})
}

// contentToHTML escapes message text and preserves line breaks. The result
// is injected with the safe filter, so escaping happens here.
func contentToHTML(content string) string {
	escaped := html.EscapeString(content)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

const transcriptHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Ticket Transcript - {{ channel_name }}</title>
<style>
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #36393f; color: #dcddde; margin: 0; padding: 20px; line-height: 1.6; }
.container { max-width: 1200px; margin: 0 auto; background-color: #2f3136; border-radius: 8px; padding: 20px; }
.header { border-bottom: 2px solid #4f545c; padding-bottom: 20px; margin-bottom: 20px; }
.header h1 { color: #ffffff; margin: 0; font-size: 2em; }
.header .info { color: #b9bbbe; margin-top: 10px; }
.message { display: flex; margin-bottom: 20px; padding: 10px; border-radius: 5px; background-color: #40444b; }
.avatar { width: 40px; height: 40px; border-radius: 50%; margin-right: 15px; flex-shrink: 0; }
.message-content { flex: 1; }
.username { font-weight: bold; color: #ffffff; margin-right: 10px; }
.timestamp { color: #72767d; font-size: 0.75em; }
.message-text { color: #dcddde; word-wrap: break-word; }
.attachment { background-color: #4f545c; border-radius: 3px; padding: 8px; margin-top: 5px; border-left: 4px solid #7289da; }
.embed { background-color: #2f3136; border-left: 4px solid #7289da; padding: 10px; margin-top: 5px; border-radius: 0 3px 3px 0; }
.bot-tag { background-color: #5865f2; color: white; font-size: 0.65em; padding: 2px 4px; border-radius: 3px; margin-left: 5px; }
.system-message { background-color: #5865f2; color: white; text-align: center; padding: 8px; border-radius: 5px; margin: 10px 0; font-style: italic; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Ticket Transcript</h1>
    <div class="info">
      <strong>Guild:</strong> {{ guild_id }}<br>
      <strong>Channel:</strong> #{{ channel_name }}<br>
      <strong>Generated:</strong> {{ generated_at }}<br>
      <strong>Requested by:</strong> {{ requested_by }}<br>
      <strong>Total Messages:</strong> {{ total }}
    </div>
  </div>
  <div class="messages">
  {% for m in messages %}
    {% if m.System %}
    <div class="system-message">{{ m.ContentHTML|safe }}</div>
    {% else %}
    <div class="message">
      <img src="{{ m.AvatarURL }}" alt="{{ m.Author }}" class="avatar">
      <div class="message-content">
        <div class="message-header">
          <span class="username">{{ m.Author }}</span>
          {% if m.Bot %}<span class="bot-tag">BOT</span>{% endif %}
          <span class="timestamp">{{ m.Timestamp }}</span>
        </div>
        <div class="message-text">{{ m.ContentHTML|safe }}</div>
        {% for att in m.Attachments %}
        <div class="attachment">
          📎 <strong>Attachment:</strong> <a href="{{ att.URL }}" target="_blank">{{ att.Name }}</a>
          {% if att.Image %}<br><img src="{{ att.URL }}" alt="{{ att.Name }}" style="max-width: 400px; margin-top: 5px;">{% endif %}
        </div>
        {% endfor %}
        {% for e in m.Embeds %}
        <div class="embed">
          <strong>📋 Embed:</strong> {{ e.Title|default:"Untitled" }}<br>
          {% if e.Description %}<div style="margin-top: 5px;">{{ e.Description }}</div>{% endif %}
        </div>
        {% endfor %}
      </div>
    </div>
    {% endif %}
  {% endfor %}
  </div>
</div>
</body>
</html>`
