package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"guild-quiz-bot/internal/domain"
)

// Accepted header rows for question imports.
var (
	importHeader       = []string{"prompt", "A", "B", "C", "D", "answer"}
	legacyImportHeader = []string{"問題", "選択肢A", "選択肢B", "選択肢C", "選択肢D", "解答"}
)

// QuestionWriter replaces a guild's question bank.
type QuestionWriter interface {
	ReplaceQuestions(ctx context.Context, guildID string, questions []domain.Question) error
}

// CacheInvalidator drops cached question banks after an import.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, guildID string) error
}

// QuestionImporter loads question CSVs into the bank.
type QuestionImporter struct {
	writer QuestionWriter
	caches []CacheInvalidator
}

func NewQuestionImporter(writer QuestionWriter, caches ...CacheInvalidator) *QuestionImporter {
	return &QuestionImporter{writer: writer, caches: caches}
}

// Import parses r and replaces the guild's bank. Live sessions are not coordinated against.
func (i *QuestionImporter) Import(ctx context.Context, guildID string, r io.Reader) (int, error) {
	questions, err := ParseQuestionCSV(guildID, r)
	if err != nil {
		return 0, err
	}
	if err := i.writer.ReplaceQuestions(ctx, guildID, questions); err != nil {
		return 0, fmt.Errorf("replace questions: %w", err)
	}
	for _, c := range i.caches {
		if err := c.Invalidate(ctx, guildID); err != nil {
			log.Error().Err(err).Str("guildId", guildID).Msg("invalidate question cache")
		}
	}
	log.Info().Str("guildId", guildID).Int("questions", len(questions)).Msg("questions imported")
	return len(questions), nil
}

// ParseQuestionCSV reads rows of prompt, options A..D and the correct key.
// Incomplete rows and rows with an unknown answer key are skipped.
func ParseQuestionCSV(guildID string, r io.Reader) ([]domain.Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrInvalidCSV
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCSV, err)
	}
	if !matchHeader(head, importHeader) && !matchHeader(head, legacyImportHeader) {
		return nil, fmt.Errorf("%w: unexpected header %q", domain.ErrInvalidCSV, head)
	}

	var questions []domain.Question
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCSV, err)
		}
		q, ok := parseQuestionRow(guildID, rec)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, domain.ErrInvalidCSV
	}
	return questions, nil
}

func parseQuestionRow(guildID string, rec []string) (domain.Question, bool) {
	if len(rec) < 6 {
		return domain.Question{}, false
	}
	for _, cell := range rec[:6] {
		if strings.TrimSpace(cell) == "" {
			return domain.Question{}, false
		}
	}
	answer := domain.OptionKey(strings.ToUpper(strings.TrimSpace(rec[5])))
	if !answer.Valid() {
		return domain.Question{}, false
	}
	return domain.Question{
		ID:      uuid.NewString(),
		GuildID: guildID,
		// a literal \n in a cell marks a line break
		Prompt: strings.ReplaceAll(rec[0], `\n`, "\n"),
		Options: map[domain.OptionKey]string{
			domain.OptionA: rec[1],
			domain.OptionB: rec[2],
			domain.OptionC: rec[3],
			domain.OptionD: rec[4],
		},
		CorrectOption: answer,
	}, true
}

func matchHeader(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i := range want {
		cell := strings.TrimSpace(strings.TrimPrefix(got[i], "\ufeff"))
		if !strings.EqualFold(cell, want[i]) {
			return false
		}
	}
	return true
}
