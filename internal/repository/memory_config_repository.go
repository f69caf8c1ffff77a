package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/guild-ticket-bot/internal/domain"
)

// MemoryConfigRepository is an in-memory TicketConfigRepository used in
// tests and DSN-less development runs.
type MemoryConfigRepository struct {
	mu      sync.Mutex
	configs map[string]*domain.TicketConfig
}

// NewMemoryConfigRepository constructs an empty repository.
func NewMemoryConfigRepository() *MemoryConfigRepository {
	return &MemoryConfigRepository{configs: make(map[string]*domain.TicketConfig)}
}

func (r *MemoryConfigRepository) Get(_ context.Context, guildID string) (*domain.TicketConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.configs[guildID]; ok {
		copied := *cfg
		return &copied, nil
	}
	return domain.DefaultTicketConfig(guildID), nil
}

func (r *MemoryConfigRepository) Upsert(_ context.Context, cfg *domain.TicketConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *cfg
	if existing, ok := r.configs[cfg.GuildID]; ok {
		// counter only moves through NextTicketNumber
		stored.TicketCounter = existing.TicketCounter
	}
	r.configs[cfg.GuildID] = &stored
	return nil
}

func (r *MemoryConfigRepository) NextTicketNumber(_ context.Context, guildID string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[guildID]
	if !ok {
		cfg = domain.DefaultTicketConfig(guildID)
		r.configs[guildID] = cfg
	}
	cfg.TicketCounter++
	return cfg.TicketCounter, nil
}

var _ TicketConfigRepository = (*MemoryConfigRepository)(nil)
