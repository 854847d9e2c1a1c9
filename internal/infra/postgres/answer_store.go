package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"guild-quiz-bot/internal/domain"
)

// AnswerStore is the Postgres answer ledger: one row per session plus one row per question.
type AnswerStore struct {
	pool *pgxpool.Pool
}

func NewAnswerStore(pool *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{pool: pool}
}

func (s *AnswerStore) MintID(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

func (s *AnswerStore) Create(ctx context.Context, record domain.AnswerRecord) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO answers (id, guild_id, user_id, user_name, started_at, round, question_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.AnswerID, record.GuildID, record.UserID, record.UserName,
			record.StartedAt, record.Round, record.QuestionCount)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}

		batch := &pgx.Batch{}
		for i, d := range record.Details {
			batch.Queue(`
				INSERT INTO answer_details (answer_id, question_id, position, prompt, correct_option)
				VALUES ($1, $2, $3, $4, $5)`,
				record.AnswerID, d.QuestionID, i, d.Prompt, string(d.CorrectOption))
		}
		br := tx.SendBatch(ctx, batch)
		for range record.Details {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert answer detail: %w", err)
			}
		}
		return br.Close()
	})
}

func (s *AnswerStore) UpdateDetail(ctx context.Context, guildID, answerID, questionID string, answer domain.OptionKey, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE answer_details d SET answer=$4, updated_at=$5
		FROM answers a
		WHERE a.id=d.answer_id AND a.guild_id=$1 AND d.answer_id=$2 AND d.question_id=$3`,
		guildID, answerID, questionID, string(answer), at)
	if err != nil {
		return fmt.Errorf("update answer detail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAnswerNotFound
	}
	return nil
}

func (s *AnswerStore) Finish(ctx context.Context, guildID, answerID string, finishedAt time.Time, durationMs int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE answers SET finished_at=$3, duration_ms=$4 WHERE guild_id=$1 AND id=$2`,
		guildID, answerID, finishedAt, durationMs)
	if err != nil {
		return fmt.Errorf("finish answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAnswerNotFound
	}
	return nil
}

func (s *AnswerStore) ListFinished(ctx context.Context, guildID string) ([]domain.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.user_name, a.started_at, a.finished_at, a.duration_ms, a.round, a.question_count,
		       d.question_id, d.prompt, d.correct_option, d.answer, d.updated_at
		FROM answers a
		JOIN answer_details d ON d.answer_id = a.id
		WHERE a.guild_id=$1 AND a.finished_at IS NOT NULL
		ORDER BY a.started_at, a.id, d.position`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list finished answers: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord
	for rows.Next() {
		var (
			rec     domain.AnswerRecord
			detail  domain.AnswerDetail
			correct string
			answer  *string
		)
		if err := rows.Scan(
			&rec.AnswerID, &rec.UserID, &rec.UserName, &rec.StartedAt, &rec.FinishedAt, &rec.DurationMs, &rec.Round, &rec.QuestionCount,
			&detail.QuestionID, &detail.Prompt, &correct, &answer, &detail.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		detail.CorrectOption = domain.OptionKey(correct)
		if answer != nil {
			key := domain.OptionKey(*answer)
			detail.Answer = &key
		}

		if n := len(records); n == 0 || records[n-1].AnswerID != rec.AnswerID {
			rec.GuildID = guildID
			records = append(records, rec)
		}
		last := &records[len(records)-1]
		last.Details = append(last.Details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list finished answers: %w", err)
	}
	return records, nil
}
