package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"guild-quiz-bot/internal/app"
	"guild-quiz-bot/internal/config"
	"guild-quiz-bot/internal/domain"
	"guild-quiz-bot/internal/infra/memory"
	"guild-quiz-bot/internal/infra/postgres"
	"guild-quiz-bot/internal/infra/rabbitmq"
	infraredis "guild-quiz-bot/internal/infra/redis"
)

// backend holds the stores selected by configuration.
type backend struct {
	sessions app.SessionRepository
	answers  app.AnswerRepository
	guilds   app.GuildRepository
	bank     app.QuestionBank
	writer   app.QuestionWriter
	caches   []app.CacheInvalidator
	events   app.EventPublisher
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// service builds the quiz engine on top of the selected stores.
func (b *backend) service(cfg config.Config) *app.QuizService {
	opts := []app.Option{
		app.WithLocation(cfg.Location()),
		app.WithDefaults(cfg.Quiz.CooldownSeconds, cfg.Quiz.QuestionCount),
	}
	if b.events != nil {
		opts = append(opts, app.WithEventPublisher(b.events))
	}
	return app.NewQuizService(b.sessions, b.answers, b.guilds, b.bank, opts...)
}

func (b *backend) importer() *app.QuestionImporter {
	return app.NewQuestionImporter(b.writer, b.caches...)
}

func buildBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var loader interface {
		app.QuestionWriter
		memory.QuestionLoader
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		loader = postgres.NewQuestionStore(pool)
		b.guilds = postgres.NewGuildStore(pool)
		b.answers = postgres.NewAnswerStore(pool)
	} else {
		log.Warn().Msg("postgres not configured, using in-memory stores with a sample guild")
		loader = memory.NewQuestionStore(sampleBanks())
		b.guilds = memory.NewGuildStore(sampleGuild(cfg))
		b.answers = memory.NewAnswerStore()
	}
	b.writer = loader

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if redisClient != nil {
		cache := infraredis.NewQuestionCache(redisClient, loader, cacheTTL)
		b.bank = cache
		b.caches = append(b.caches, cache)
		b.sessions = infraredis.NewSessionStore(redisClient)
	} else {
		cache := memory.NewQuestionCache(loader, cacheTTL)
		b.bank = cache
		b.caches = append(b.caches, cache)
		b.sessions = memory.NewSessionStore()
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = publisher.Close() })
		b.events = publisher
	}
	return b, nil
}

const sampleGuildID = "demo"

func sampleGuild(cfg config.Config) domain.GuildConfig {
	return domain.GuildConfig{
		GuildID:         sampleGuildID,
		Name:            "Demo Guild",
		CooldownSeconds: cfg.Quiz.CooldownSeconds,
		QuestionCount:   cfg.Quiz.QuestionCount,
	}
}

// sampleBanks provides a minimal question bank for running without a database.
func sampleBanks() map[string][]domain.Question {
	q := func(id, prompt, a, b, c, d string, correct domain.OptionKey) domain.Question {
		return domain.Question{
			ID:      id,
			GuildID: sampleGuildID,
			Prompt:  prompt,
			Options: map[domain.OptionKey]string{
				domain.OptionA: a,
				domain.OptionB: b,
				domain.OptionC: c,
				domain.OptionD: d,
			},
			CorrectOption: correct,
		}
	}
	return map[string][]domain.Question{
		sampleGuildID: {
			q("q1", "What is 2 + 2?", "3", "4", "5", "22", domain.OptionB),
			q("q2", "Which planet is closest to the sun?", "Venus", "Earth", "Mercury", "Mars", domain.OptionC),
			q("q3", "How many minutes are in an hour?", "60", "100", "30", "24", domain.OptionA),
		},
	}
}
