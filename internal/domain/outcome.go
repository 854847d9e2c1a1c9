package domain

import "time"

// StartStatus tags the result of a start trigger.
type StartStatus int

const (
	StartFirstQuestion StartStatus = iota
	StartCooldownActive
	StartNoQuestions
	StartNotConfigured
)

func (s StartStatus) String() string {
	switch s {
	case StartFirstQuestion:
		return "first_question"
	case StartCooldownActive:
		return "cooldown_active"
	case StartNoQuestions:
		return "no_questions"
	case StartNotConfigured:
		return "not_configured"
	}
	return "unknown"
}

// AnswerStatus tags the result of an answer submission.
type AnswerStatus int

const (
	AnswerNoSession AnswerStatus = iota
	AnswerStale
	AnswerRetry
	AnswerSystemError
	AnswerNextQuestion
	AnswerCompleted
)

func (s AnswerStatus) String() string {
	switch s {
	case AnswerNoSession:
		return "no_session"
	case AnswerStale:
		return "stale"
	case AnswerRetry:
		return "retry"
	case AnswerSystemError:
		return "system_error"
	case AnswerNextQuestion:
		return "next_question"
	case AnswerCompleted:
		return "completed"
	}
	return "unknown"
}

// Choice is one entry of the single-select control, in display order.
type Choice struct {
	Label string    `json:"label"`
	Value OptionKey `json:"value"`
}

// QuestionPayload is the outgoing message for one question.
type QuestionPayload struct {
	GuildID  string    `json:"guildId"`
	UserID   string    `json:"userId"`
	Token    string    `json:"token"`
	Position int       `json:"position"`
	Total    int       `json:"total"`
	Prompt   string    `json:"prompt"`
	ImageURL string    `json:"imageUrl,omitempty"`
	Choices  []Choice  `json:"choices"`
	Deadline time.Time `json:"deadline"`
}

// StartOutcome is the result of QuizService.Start.
type StartOutcome struct {
	Status   StartStatus
	Question *QuestionPayload
	Session  *Session
}

// AnswerOutcome is the result of QuizService.SubmitAnswer.
type AnswerOutcome struct {
	Status   AnswerStatus
	Question *QuestionPayload
}

// ExportOutcome is the result of QuizService.ExportCSV. Rows is nil when there is no data.
type ExportOutcome struct {
	Rows [][]string
}

// NoData reports whether no finished record was available for export.
func (o ExportOutcome) NoData() bool {
	return len(o.Rows) == 0
}

// NoticeKind classifies plain-text replies.
type NoticeKind string

const (
	NoticeCooldown    NoticeKind = "cooldown"
	NoticeRetry       NoticeKind = "retry"
	NoticeSystemError NoticeKind = "system_error"
	NoticeNoSession   NoticeKind = "no_session"
	NoticeCompleted   NoticeKind = "completed"
)

// Notice is a plain-text reply addressed to one user.
type Notice struct {
	GuildID string     `json:"guildId"`
	UserID  string     `json:"userId"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}
