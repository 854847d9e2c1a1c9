package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"guild-quiz-bot/internal/domain"
)

// ExportHeader holds the fixed metadata columns of the result table.
var ExportHeader = []string{
	"respondent",
	"percentage_correct",
	"started_at",
	"duration",
	"round",
	"correct",
	"questions",
}

// FormatCSV derives the result table from finished answer records.
// Question columns follow first appearance across records; unfinished records are skipped.
func FormatCSV(bank []domain.Question, records []domain.AnswerRecord, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}
	finished := make([]domain.AnswerRecord, 0, len(records))
	for _, r := range records {
		if r.Finished() {
			finished = append(finished, r)
		}
	}
	sort.SliceStable(finished, func(i, j int) bool {
		if !finished[i].StartedAt.Equal(finished[j].StartedAt) {
			return finished[i].StartedAt.Before(finished[j].StartedAt)
		}
		return finished[i].UserName < finished[j].UserName
	})

	byID := indexQuestions(bank)
	var columns []string
	labels := make(map[string]string)
	for _, r := range finished {
		for _, d := range r.Details {
			if _, seen := labels[d.QuestionID]; seen {
				continue
			}
			label := d.Prompt
			if q, ok := byID[d.QuestionID]; ok {
				label = q.Prompt
			}
			labels[d.QuestionID] = label
			columns = append(columns, d.QuestionID)
		}
	}

	header := make([]string, 0, len(ExportHeader)+len(columns))
	header = append(header, ExportHeader...)
	for _, id := range columns {
		header = append(header, labels[id])
	}

	rows := make([][]string, 0, len(finished)+1)
	rows = append(rows, header)
	for _, r := range finished {
		answers := make(map[string]string, len(r.Details))
		correct := 0
		for _, d := range r.Details {
			if d.Answer == nil {
				continue
			}
			answers[d.QuestionID] = string(*d.Answer)
			key := d.CorrectOption
			if q, ok := byID[d.QuestionID]; ok {
				key = q.CorrectOption
			}
			if *d.Answer == key {
				correct++
			}
		}
		var durationMs int64
		if r.DurationMs != nil {
			durationMs = *r.DurationMs
		}

		row := []string{
			r.UserName,
			percentage(correct, r.QuestionCount),
			formatStartedAt(r.StartedAt, loc),
			formatDuration(durationMs),
			strconv.Itoa(r.Round + 1),
			strconv.Itoa(correct),
			strconv.Itoa(r.QuestionCount),
		}
		for _, id := range columns {
			row = append(row, answers[id])
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV serializes rows as RFC 4180 CSV.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// percentage rounds to two decimals, e.g. "66.67%".
func percentage(correct, total int) string {
	if total <= 0 {
		return "0%"
	}
	v := math.Round(float64(correct)/float64(total)*10000) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func formatDuration(ms int64) string {
	sec := ms / 1000
	return fmt.Sprintf("%dh%dm%ds", sec/3600, (sec%3600)/60, sec%60)
}

func formatStartedAt(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006/01/02 15:04:05 MST")
}
