package memory

import (
	"context"
	"sync"

	"guild-quiz-bot/internal/domain"
)

// GuildStore keeps guild settings in process memory.
type GuildStore struct {
	mu     sync.RWMutex
	guilds map[string]domain.GuildConfig
}

func NewGuildStore(configs ...domain.GuildConfig) *GuildStore {
	s := &GuildStore{guilds: make(map[string]domain.GuildConfig)}
	for _, c := range configs {
		s.guilds[c.GuildID] = c
	}
	return s
}

func (s *GuildStore) GetConfig(_ context.Context, guildID string) (domain.GuildConfig, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.guilds[guildID]
	return cfg, ok, nil
}

func (s *GuildStore) PutConfig(_ context.Context, cfg domain.GuildConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[cfg.GuildID] = cfg
	return nil
}
