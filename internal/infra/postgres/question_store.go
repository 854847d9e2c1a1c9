package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"guild-quiz-bot/internal/domain"
)

// QuestionStore loads question JSONB from Postgres.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) LoadQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE guild_id=$1 ORDER BY position`, guildID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// ListQuestions serves the store directly as a question bank.
func (s *QuestionStore) ListQuestions(ctx context.Context, guildID string) ([]domain.Question, error) {
	return s.LoadQuestions(ctx, guildID)
}

// ReplaceQuestions swaps the guild's bank in one transaction.
func (s *QuestionStore) ReplaceQuestions(ctx context.Context, guildID string, questions []domain.Question) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE guild_id=$1`, guildID); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		batch := &pgx.Batch{}
		for i, q := range questions {
			q.GuildID = guildID
			data, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("marshal question: %w", err)
			}
			batch.Queue(`INSERT INTO questions (id, guild_id, position, data) VALUES ($1, $2, $3, $4::jsonb)`,
				q.ID, guildID, i, string(data))
		}
		br := tx.SendBatch(ctx, batch)
		for range questions {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return br.Close()
	})
}
