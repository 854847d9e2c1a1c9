package memory

import (
	"context"
	"sync"

	"guild-quiz-bot/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Get(_ context.Context, guildID, userID string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionKey(guildID, userID)]
	if !ok {
		return domain.Session{}, false, nil
	}
	return cloneSession(session), true, nil
}

func (s *SessionStore) Replace(_ context.Context, next domain.Session, prevAnswerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(next.GuildID, next.UserID)
	current, ok := s.sessions[key]
	switch {
	case !ok && prevAnswerID != "":
		return domain.ErrSessionConflict
	case ok && current.AnswerID != prevAnswerID:
		return domain.ErrSessionConflict
	}
	s.sessions[key] = cloneSession(next)
	return nil
}

func (s *SessionStore) Advance(_ context.Context, guildID, userID, answerID string, fromIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(guildID, userID)
	current, ok := s.sessions[key]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if current.AnswerID != answerID || current.CurrentIndex != fromIndex || current.Completed() {
		return domain.ErrSessionConflict
	}
	current.CurrentIndex = fromIndex + 1
	s.sessions[key] = current
	return nil
}

func sessionKey(guildID, userID string) string {
	return guildID + "/" + userID
}

func cloneSession(s domain.Session) domain.Session {
	s.QuestionOrder = append([]string(nil), s.QuestionOrder...)
	return s
}
