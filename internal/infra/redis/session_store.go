package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"guild-quiz-bot/internal/domain"
)

// SessionStore is a Redis-backed implementation of app.SessionRepository.
// Each session is one JSON document; conditional writes use WATCH/MULTI so
// concurrent interactions for the same user cannot both move the cursor.
// Keys carry no TTL: the round counter lives on the stored session.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) Get(ctx context.Context, guildID, userID string) (domain.Session, bool, error) {
	return readSession(ctx, s.client, s.key(guildID, userID))
}

func (s *SessionStore) Replace(ctx context.Context, next domain.Session, prevAnswerID string) error {
	key := s.key(next.GuildID, next.UserID)
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		current, ok, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if (!ok && prevAnswerID != "") || (ok && current.AnswerID != prevAnswerID) {
			return domain.ErrSessionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	})
}

func (s *SessionStore) Advance(ctx context.Context, guildID, userID, answerID string, fromIndex int) error {
	key := s.key(guildID, userID)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		current, ok, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSessionNotFound
		}
		if current.AnswerID != answerID || current.CurrentIndex != fromIndex || current.Completed() {
			return domain.ErrSessionConflict
		}
		current.CurrentIndex = fromIndex + 1
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	})
}

func (s *SessionStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	err := s.client.Watch(ctx, fn, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrSessionConflict
	}
	return err
}

func (s *SessionStore) key(guildID, userID string) string {
	return "quiz:session:" + guildID + ":" + userID
}

func readSession(ctx context.Context, c getter, key string) (domain.Session, bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, true, nil
}
