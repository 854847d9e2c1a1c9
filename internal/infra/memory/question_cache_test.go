package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"guild-quiz-bot/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewQuestionStore(map[string][]domain.Question{
			"g1": sampleQuestions(),
		}),
	}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.ListQuestions(context.Background(), "g1"); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.ListQuestions(context.Background(), "g1"); err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore(map[string][]domain.Question{"g1": sampleQuestions()})
	cache := NewQuestionCache(store, time.Minute)

	if _, err := cache.ListQuestions(ctx, "g1"); err != nil {
		t.Fatalf("list questions: %v", err)
	}
	_ = store.ReplaceQuestions(ctx, "g1", nil)
	_ = cache.Invalidate(ctx, "g1")

	got, err := cache.ListQuestions(ctx, "g1")
	if err != nil {
		t.Fatalf("list after invalidate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty bank after re-import, got %d", len(got))
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, guildID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:      "q1",
			GuildID: "g1",
			Prompt:  "What is 2 + 2?",
			Options: map[domain.OptionKey]string{
				domain.OptionA: "3",
				domain.OptionB: "4",
				domain.OptionC: "5",
				domain.OptionD: "22",
			},
			CorrectOption: domain.OptionB,
		},
	}
}

func TestQuestionCacheDropsLoadStartedBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore(map[string][]domain.Question{"g1": sampleQuestions()})
	loader := newGatedLoader(store)
	cache := NewQuestionCache(loader, time.Hour)

	done := make(chan []domain.Question)
	go func() {
		bank, _ := cache.ListQuestions(ctx, "g1")
		done <- bank
	}()
	<-loader.started

	// import lands while the first load is still in flight
	_ = store.ReplaceQuestions(ctx, "g1", nil)
	_ = cache.Invalidate(ctx, "g1")
	close(loader.release)

	if old := <-done; len(old) != 1 {
		t.Fatalf("expected in-flight load to return the old bank, got %d", len(old))
	}
	got, err := cache.ListQuestions(ctx, "g1")
	if err != nil {
		t.Fatalf("list after invalidate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("stale bank written back after invalidate: %d questions", len(got))
	}
}

// gatedLoader blocks its first load until release is closed.
type gatedLoader struct {
	QuestionLoader
	started chan struct{}
	release chan struct{}
	first   sync.Once
}

func newGatedLoader(inner QuestionLoader) *gatedLoader {
	return &gatedLoader{QuestionLoader: inner, started: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	var gated bool
	l.first.Do(func() { gated = true })
	if !gated {
		return l.QuestionLoader.LoadQuestions(ctx, guildID)
	}
	questions, err := l.QuestionLoader.LoadQuestions(ctx, guildID)
	close(l.started)
	<-l.release
	return questions, err
}
