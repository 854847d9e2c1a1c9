package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"guild-quiz-bot/internal/domain"
)

// QuestionLoader fetches a guild's question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error)
}

// QuestionCache caches question banks in Redis (hash per guild) and falls back to a loader on cache miss.
// Questions are stored as: HSET quiz:{guildID}:questions {questionID} {json}
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	key := c.key(guildID)

	if cached, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
		if questions, err := decodeBank(cached); err == nil {
			return questions, nil
		}
	}

	// an unreadable generation never matches, so such a load is not written back
	gen, err := c.generation(ctx, c.client, guildID)
	if err != nil {
		gen = ""
	}

	result, err, _ := c.sf.Do(guildID+"#"+gen, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
			if questions, err := decodeBank(cached); err == nil {
				return questions, nil
			}
		}

		questions, err := c.loader.LoadQuestions(ctx, guildID)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		fields := make(map[string]interface{}, len(questions))
		for _, q := range questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("marshal question: %w", err)
			}
			fields[q.ID] = raw
		}
		ttl := c.ttlWithJitter()
		genKey := c.genKey(guildID)
		// the bank is only written back if no Invalidate ran during the load
		_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := c.generation(ctx, tx, guildID)
			if err != nil || current != gen {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.HSet(ctx, key, fields)
				if ttl > 0 {
					pipe.Expire(ctx, key, ttl)
				}
				return nil
			})
			return err
		}, genKey)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank so the next read hits the loader.
func (c *QuestionCache) Invalidate(ctx context.Context, guildID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.genKey(guildID))
	pipe.Del(ctx, c.key(guildID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate questions: %w", err)
	}
	return nil
}

func (c *QuestionCache) generation(ctx context.Context, g getter, guildID string) (string, error) {
	gen, err := g.Get(ctx, c.genKey(guildID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("read questions generation: %w", err)
	}
	return gen, nil
}

func (c *QuestionCache) key(guildID string) string {
	return "quiz:" + guildID + ":questions"
}

func (c *QuestionCache) genKey(guildID string) string {
	return "quiz:" + guildID + ":questions:gen"
}

func decodeBank(cached map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(cached))
	for _, raw := range cached {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
