package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"guild-quiz-bot/internal/domain"
)

// GuildStore keeps per-guild quiz settings in Postgres.
type GuildStore struct {
	pool *pgxpool.Pool
}

func NewGuildStore(pool *pgxpool.Pool) *GuildStore {
	return &GuildStore{pool: pool}
}

func (s *GuildStore) GetConfig(ctx context.Context, guildID string) (domain.GuildConfig, bool, error) {
	cfg := domain.GuildConfig{GuildID: guildID}
	err := s.pool.QueryRow(ctx,
		`SELECT name, cooldown_seconds, question_count FROM guilds WHERE id=$1`, guildID,
	).Scan(&cfg.Name, &cfg.CooldownSeconds, &cfg.QuestionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GuildConfig{}, false, nil
	}
	if err != nil {
		return domain.GuildConfig{}, false, fmt.Errorf("load guild config: %w", err)
	}
	return cfg, true, nil
}

func (s *GuildStore) PutConfig(ctx context.Context, cfg domain.GuildConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guilds (id, name, cooldown_seconds, question_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			cooldown_seconds=EXCLUDED.cooldown_seconds,
			question_count=EXCLUDED.question_count`,
		cfg.GuildID, cfg.Name, cfg.CooldownSeconds, cfg.QuestionCount)
	if err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	return nil
}
