package domain

import "time"

// Default guild settings applied when a community is onboarded.
const (
	DefaultCooldownSeconds = 30 * 60
	DefaultQuestionCount   = 30
)

// OptionKey identifies one of the four answer slots of a question.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the answer slots in canonical order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether k is one of A..D.
func (k OptionKey) Valid() bool {
	switch k {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// GuildConfig holds the per-community quiz settings.
type GuildConfig struct {
	GuildID         string `json:"guildId"`
	Name            string `json:"name"`
	CooldownSeconds int    `json:"cooldownSeconds"`
	QuestionCount   int    `json:"questionCount"`
}

// Validate rejects settings the session engine cannot work with.
func (c GuildConfig) Validate() error {
	if c.CooldownSeconds < 0 {
		return ErrNegativeCooldown
	}
	if c.QuestionCount < 1 {
		return ErrInvalidQuestionCount
	}
	return nil
}

// Question models a four-option MCQ item of a guild's question bank.
type Question struct {
	ID            string               `json:"id"`
	GuildID       string               `json:"guildId"`
	Prompt        string               `json:"prompt"`
	Options       map[OptionKey]string `json:"options"`
	CorrectOption OptionKey            `json:"correctOption"`
	ImageURL      string               `json:"imageUrl,omitempty"`
}

// Session is the live cursor of one user through a randomized question list.
type Session struct {
	GuildID       string    `json:"guildId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	AnswerID      string    `json:"answerId"`
	QuestionOrder []string  `json:"questionOrder"`
	CurrentIndex  int       `json:"currentIndex"`
	StartedAt     time.Time `json:"startedAt"`
	Deadline      time.Time `json:"deadline"`
	Round         int       `json:"round"`
}

// Completed reports whether every question of the session has been answered.
func (s Session) Completed() bool {
	return s.CurrentIndex >= len(s.QuestionOrder)
}

// Expired reports whether the deadline has passed at now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.Deadline)
}

// CurrentQuestionID returns the id at the cursor, or false once completed.
func (s Session) CurrentQuestionID() (string, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.QuestionOrder) {
		return "", false
	}
	return s.QuestionOrder[s.CurrentIndex], true
}

// AnswerDetail is one per-question row of an AnswerRecord.
// Prompt and CorrectOption are copied from the bank when the session starts.
type AnswerDetail struct {
	QuestionID    string     `json:"questionId"`
	Prompt        string     `json:"prompt"`
	CorrectOption OptionKey  `json:"correctOption"`
	Answer        *OptionKey `json:"answer"`
	UpdatedAt     *time.Time `json:"updatedAt"`
}

// AnswerRecord is the export-facing ledger of one session.
type AnswerRecord struct {
	AnswerID      string         `json:"answerId"`
	GuildID       string         `json:"guildId"`
	UserID        string         `json:"userId"`
	UserName      string         `json:"userName"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    *time.Time     `json:"finishedAt"`
	DurationMs    *int64         `json:"durationMs"`
	Round         int            `json:"round"`
	QuestionCount int            `json:"questionCount"`
	Details       []AnswerDetail `json:"details"`
}

// Finished reports whether the final question has been answered.
func (r AnswerRecord) Finished() bool {
	return r.FinishedAt != nil
}

// CompletedEvent is published when a user answers the last question in time.
type CompletedEvent struct {
	GuildID       string    `json:"guildId"`
	UserID        string    `json:"userId"`
	AnswerID      string    `json:"answerId"`
	Round         int       `json:"round"`
	QuestionCount int       `json:"questionCount"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	DurationMs    int64     `json:"durationMs"`
}

// User identifies the member who triggered an interaction.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
