package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"guild-quiz-bot/internal/domain"
)

// QuestionLoader fetches a guild's question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error)
}

// QuestionCache caches question banks with TTL to avoid repeated DB hits.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
	gens  map[string]uint64
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
		gens:   make(map[string]uint64),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[guildID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	gen := c.gens[guildID]
	c.mu.RUnlock()

	// loads started before an Invalidate never share with or overwrite later ones
	result, err, _ := c.sf.Do(guildID+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[guildID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadQuestions(ctx, guildID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[guildID] == gen {
			c.cache[guildID] = cachedBank{
				questions: questions,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank so the next read hits the loader.
func (c *QuestionCache) Invalidate(_ context.Context, guildID string) error {
	c.mu.Lock()
	delete(c.cache, guildID)
	c.gens[guildID]++
	c.mu.Unlock()
	return nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// QuestionStore is a question bank backed by an in-memory map (useful for tests/demos).
type QuestionStore struct {
	mu    sync.RWMutex
	banks map[string][]domain.Question
}

func NewQuestionStore(banks map[string][]domain.Question) *QuestionStore {
	if banks == nil {
		banks = make(map[string][]domain.Question)
	}
	return &QuestionStore{banks: banks}
}

func (s *QuestionStore) LoadQuestions(_ context.Context, guildID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Question(nil), s.banks[guildID]...), nil
}

// ListQuestions lets the store serve as an uncached app.QuestionBank.
func (s *QuestionStore) ListQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	return s.LoadQuestions(ctx, guildID)
}

func (s *QuestionStore) ReplaceQuestions(_ context.Context, guildID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[guildID] = append([]domain.Question(nil), questions...)
	return nil
}
