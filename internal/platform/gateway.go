package platform

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Interaction is a decoded command or button event from the gateway feed.
type Interaction struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // "command" or "button"
	GuildID   string            `json:"guild_id"`
	ChannelID string            `json:"channel_id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`      // slash command name
	CustomID  string            `json:"custom_id"` // button custom id
	Options   map[string]string `json:"options"`
}

// InteractionHandler consumes one interaction. The returned string, when
// non-empty, is sent back to the user as the interaction reply.
type InteractionHandler func(ctx context.Context, interaction Interaction) string

// GatewayConfig configures the websocket event-feed consumer.
type GatewayConfig struct {
	URL      string
	BotToken string
}

// Gateway consumes the platform's websocket event feed and dispatches
// interaction events.
type Gateway struct {
	cfg     GatewayConfig
	rest    Client
	handler InteractionHandler
	logger  *zap.Logger
}

// NewGateway constructs the consumer.
func NewGateway(cfg GatewayConfig, rest Client, handler InteractionHandler, logger *zap.Logger) *Gateway {
	return &Gateway{cfg: cfg, rest: rest, handler: handler, logger: logger}
}

type gatewayEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Run connects and reads events until the context is cancelled, redialing
// with backoff on connection loss.
func (g *Gateway) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := g.session(ctx); err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Warn("gateway session ended", zap.Error(err), zap.Duration("retry_in", backoff))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (g *Gateway) session(ctx context.Context) error {
	header := map[string][]string{"Authorization": {"Bot " + g.cfg.BotToken}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.cfg.URL, header)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck
	g.logger.Info("gateway connected", zap.String("url", g.cfg.URL))

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var event gatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			g.logger.Warn("gateway payload undecodable", zap.Error(err))
			continue
		}
		if event.Op != "interaction" {
			continue
		}
		var interaction Interaction
		if err := json.Unmarshal(event.Data, &interaction); err != nil {
			g.logger.Warn("interaction undecodable", zap.Error(err))
			continue
		}
		g.dispatch(ctx, interaction)
	}
}

func (g *Gateway) dispatch(ctx context.Context, interaction Interaction) {
	reply := g.handler(ctx, interaction)
	if reply == "" {
		return
	}
	if _, err := g.rest.SendMessage(ctx, interaction.ChannelID, SendRequest{Content: reply}); err != nil {
		g.logger.Warn("interaction reply failed",
			zap.String("channel_id", interaction.ChannelID),
			zap.Error(err))
	}
}
