package app

import (
	"bytes"
	"testing"
	"time"

	"guild-quiz-bot/internal/domain"
)

func TestFormatCSV(t *testing.T) {
	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	start := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	finished := start.Add(time.Hour + 2*time.Minute + 3*time.Second)
	a, b, c := domain.OptionA, domain.OptionB, domain.OptionC

	bank := []domain.Question{
		{ID: "q1", Prompt: "Current wording", CorrectOption: domain.OptionA},
		{ID: "q2", Prompt: "Second", CorrectOption: domain.OptionB},
	}
	records := []domain.AnswerRecord{
		record("bob", start.Add(time.Minute), &finished, 1, []domain.AnswerDetail{
			{QuestionID: "q2", Prompt: "Second", CorrectOption: domain.OptionB, Answer: &b},
			{QuestionID: "q3", Prompt: "Removed later", CorrectOption: domain.OptionC, Answer: &c},
			{QuestionID: "q1", Prompt: "Old wording", CorrectOption: domain.OptionA, Answer: &b},
		}),
		record("alice", start, &finished, 0, []domain.AnswerDetail{
			{QuestionID: "q1", Prompt: "Old wording", CorrectOption: domain.OptionA, Answer: &a},
			{QuestionID: "q2", Prompt: "Second", CorrectOption: domain.OptionB, Answer: &a},
			{QuestionID: "q3", Prompt: "Removed later", CorrectOption: domain.OptionC, Answer: &b},
		}),
		record("carol", start, nil, 0, nil),
	}

	rows := FormatCSV(bank, records, jst)
	if len(rows) != 3 {
		t.Fatalf("expected header and two finished rows, got %d", len(rows))
	}
	wantHeader := []string{"respondent", "percentage_correct", "started_at", "duration", "round", "correct", "questions", "Current wording", "Second", "Removed later"}
	assertRow(t, rows[0], wantHeader)
	assertRow(t, rows[1], []string{"alice", "33.33%", "2024/05/01 10:00:00 JST", "1h2m3s", "1", "1", "3", "A", "A", "B"})
	assertRow(t, rows[2], []string{"bob", "66.67%", "2024/05/01 10:01:00 JST", "1h1m3s", "2", "2", "3", "B", "B", "C"})
}

func TestPercentageRounding(t *testing.T) {
	cases := map[[2]int]string{
		{0, 3}:   "0%",
		{1, 3}:   "33.33%",
		{2, 3}:   "66.67%",
		{1, 2}:   "50%",
		{30, 30}: "100%",
		{1, 0}:   "0%",
	}
	for in, want := range cases {
		if got := percentage(in[0], in[1]); got != want {
			t.Fatalf("percentage(%d,%d) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestWriteCSVQuotes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, [][]string{{"a,b", "line\nbreak"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "\"a,b\",\"line\nbreak\"\n" {
		t.Fatalf("unexpected csv %q", got)
	}
}

func record(name string, started time.Time, finished *time.Time, round int, details []domain.AnswerDetail) domain.AnswerRecord {
	r := domain.AnswerRecord{
		AnswerID:      name,
		GuildID:       "g1",
		UserID:        name,
		UserName:      name,
		StartedAt:     started,
		FinishedAt:    finished,
		Round:         round,
		QuestionCount: len(details),
		Details:       details,
	}
	if finished != nil {
		ms := finished.Sub(started).Milliseconds()
		r.DurationMs = &ms
	}
	return r
}

func assertRow(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row length %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d = %q, want %q (row %v)", i, got[i], want[i], got)
		}
	}
}
