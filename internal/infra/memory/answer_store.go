package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"guild-quiz-bot/internal/domain"
)

// AnswerStore keeps answer records in process memory.
type AnswerStore struct {
	mu      sync.RWMutex
	records map[string]*domain.AnswerRecord
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{records: make(map[string]*domain.AnswerRecord)}
}

func (s *AnswerStore) MintID(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

func (s *AnswerStore) Create(_ context.Context, record domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := cloneRecord(record)
	s.records[answerKey(record.GuildID, record.AnswerID)] = &r
	return nil
}

func (s *AnswerStore) UpdateDetail(_ context.Context, guildID, answerID, questionID string, answer domain.OptionKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[answerKey(guildID, answerID)]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	for i := range r.Details {
		if r.Details[i].QuestionID == questionID {
			a, t := answer, at
			r.Details[i].Answer = &a
			r.Details[i].UpdatedAt = &t
			return nil
		}
	}
	return domain.ErrAnswerNotFound
}

func (s *AnswerStore) Finish(_ context.Context, guildID, answerID string, finishedAt time.Time, durationMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[answerKey(guildID, answerID)]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	f, d := finishedAt, durationMs
	r.FinishedAt = &f
	r.DurationMs = &d
	return nil
}

func (s *AnswerStore) ListFinished(_ context.Context, guildID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnswerRecord
	for _, r := range s.records {
		if r.GuildID == guildID && r.Finished() {
			out = append(out, cloneRecord(*r))
		}
	}
	return out, nil
}

// Get returns a copy of one record, finished or not.
func (s *AnswerStore) Get(_ context.Context, guildID, answerID string) (domain.AnswerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[answerKey(guildID, answerID)]
	if !ok {
		return domain.AnswerRecord{}, false
	}
	return cloneRecord(*r), true
}

func answerKey(guildID, answerID string) string {
	return guildID + "/" + answerID
}

func cloneRecord(r domain.AnswerRecord) domain.AnswerRecord {
	r.Details = append([]domain.AnswerDetail(nil), r.Details...)
	return r
}
