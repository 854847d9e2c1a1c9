package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"guild-quiz-bot/internal/domain"
	"guild-quiz-bot/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuestionStore: memory.NewQuestionStore(map[string][]domain.Question{
			"g1": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	got, err := cache.ListQuestions(context.Background(), "g1")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:g1:questions") {
		t.Fatalf("expected redis hash to be set")
	}

	// Second call should hit cache, loader not incremented.
	got, _ = cache.ListQuestions(context.Background(), "g1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if got[0].ID != "q1" || got[1].Options[domain.OptionB] != "4" {
		t.Fatalf("unexpected cached bank %+v", got)
	}
}

func TestQuestionCacheInvalidateDropsHash(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	loader := &countingLoader{
		QuestionStore: memory.NewQuestionStore(map[string][]domain.Question{
			"g1": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(newClient(mr), loader, time.Minute)

	_, _ = cache.ListQuestions(ctx, "g1")
	if err := cache.Invalidate(ctx, "g1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:g1:questions") {
		t.Fatalf("expected redis hash to be removed")
	}
	_, _ = cache.ListQuestions(ctx, "g1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	*memory.QuestionStore
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionStore.LoadQuestions(ctx, guildID)
}

func sampleQuestions() []domain.Question {
	options := map[domain.OptionKey]string{
		domain.OptionA: "3",
		domain.OptionB: "4",
		domain.OptionC: "5",
		domain.OptionD: "6",
	}
	return []domain.Question{
		{ID: "q1", GuildID: "g1", Prompt: "What is 2 + 2?", Options: options, CorrectOption: domain.OptionB},
		{ID: "q2", GuildID: "g1", Prompt: "What is 3 + 1?", Options: options, CorrectOption: domain.OptionB},
	}
}

func TestQuestionCacheSkipsWriteBackAfterInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := memory.NewQuestionStore(map[string][]domain.Question{"g1": sampleQuestions()})
	loader := &invalidatingLoader{QuestionStore: store}
	cache := NewQuestionCache(newClient(mr), loader, time.Minute)
	loader.cache = cache

	// the first load races an import that empties the bank
	old, err := cache.ListQuestions(ctx, "g1")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(old) != 2 {
		t.Fatalf("expected the in-flight load to return the old bank, got %d", len(old))
	}
	if mr.Exists("quiz:g1:questions") {
		t.Fatalf("stale bank written back after invalidate")
	}

	got, _ := cache.ListQuestions(ctx, "g1")
	if len(got) != 0 {
		t.Fatalf("expected the re-imported bank, got %d questions", len(got))
	}
}

// invalidatingLoader simulates an import landing during its first load.
type invalidatingLoader struct {
	*memory.QuestionStore
	cache *QuestionCache
	calls int
}

func (l *invalidatingLoader) LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	l.calls++
	questions, err := l.QuestionStore.LoadQuestions(ctx, guildID)
	if l.calls == 1 {
		_ = l.QuestionStore.ReplaceQuestions(ctx, guildID, nil)
		_ = l.cache.Invalidate(ctx, guildID)
	}
	return questions, err
}
