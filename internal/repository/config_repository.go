package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

// TicketConfigRepository persists per-guild ticket settings. Get returns the
// default document for guilds that never ran setup; every mutation is
// flushed immediately.
type TicketConfigRepository interface {
	Get(ctx context.Context, guildID string) (*domain.TicketConfig, error)
	Upsert(ctx context.Context, cfg *domain.TicketConfig) error
	// NextTicketNumber atomically increments the guild's ticket counter by
	// exactly one and returns the new value. Safe under concurrent creates.
	NextTicketNumber(ctx context.Context, guildID string) (uint64, error)
}

type ticketConfigRepository struct {
	pool *pgxpool.Pool
}

// NewTicketConfigRepository instantiates the postgres-backed repository.
func NewTicketConfigRepository(pool *pgxpool.Pool) TicketConfigRepository {
	return &ticketConfigRepository{pool: pool}
}

func (r *ticketConfigRepository) Get(ctx context.Context, guildID string) (*domain.TicketConfig, error) {
	const query = `
        SELECT guild_id, enabled, category_id, support_role_id, panel_channel_id,
               transcript_channel_id, mod_log_channel_id, ticket_counter, close_after_hours
        FROM guild_ticket_configs WHERE guild_id=$1`
	var cfg domain.TicketConfig
	err := r.pool.QueryRow(ctx, query, guildID).Scan(
		&cfg.GuildID,
		&cfg.Enabled,
		&cfg.CategoryID,
		&cfg.SupportRoleID,
		&cfg.PanelChannelID,
		&cfg.TranscriptChannelID,
		&cfg.ModLogChannelID,
		&cfg.TicketCounter,
		&cfg.CloseAfterHours,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultTicketConfig(guildID), nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ticketConfigRepository) Upsert(ctx context.Context, cfg *domain.TicketConfig) error {
	const query = `
        INSERT INTO guild_ticket_configs
            (guild_id, enabled, category_id, support_role_id, panel_channel_id,
             transcript_channel_id, mod_log_channel_id, ticket_counter, close_after_hours)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (guild_id) DO UPDATE SET
            enabled=EXCLUDED.enabled,
            category_id=EXCLUDED.category_id,
            support_role_id=EXCLUDED.support_role_id,
            panel_channel_id=EXCLUDED.panel_channel_id,
            transcript_channel_id=EXCLUDED.transcript_channel_id,
            mod_log_channel_id=EXCLUDED.mod_log_channel_id,
            close_after_hours=EXCLUDED.close_after_hours,
            updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query,
		cfg.GuildID,
		cfg.Enabled,
		cfg.CategoryID,
		cfg.SupportRoleID,
		cfg.PanelChannelID,
		cfg.TranscriptChannelID,
		cfg.ModLogChannelID,
		cfg.TicketCounter,
		cfg.CloseAfterHours,
	)
	return err
}

func (r *ticketConfigRepository) NextTicketNumber(ctx context.Context, guildID string) (uint64, error) {
	// The counter row is created on first use; the increment is a single
	// statement so concurrent creates never observe the same number.
	const query = `
        INSERT INTO guild_ticket_configs (guild_id, ticket_counter)
        VALUES ($1, 1)
        ON CONFLICT (guild_id) DO UPDATE SET
            ticket_counter = guild_ticket_configs.ticket_counter + 1,
            updated_at = NOW()
        RETURNING ticket_counter`
	var counter uint64
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(&counter); err != nil {
		return 0, err
	}
	return counter, nil
}
