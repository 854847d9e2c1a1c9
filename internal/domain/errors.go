package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a user answers before starting a quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionConflict is returned when a conditional session write loses a race.
	ErrSessionConflict = errors.New("quiz session changed concurrently")
	// ErrAnswerNotFound indicates an answer record or detail row does not exist.
	ErrAnswerNotFound = errors.New("answer record not found")
	// ErrGuildNotConfigured indicates the guild has no quiz settings.
	ErrGuildNotConfigured = errors.New("guild not configured")
	// ErrNegativeCooldown rejects a cooldown below zero seconds.
	ErrNegativeCooldown = errors.New("cooldown seconds must not be negative")
	// ErrInvalidQuestionCount rejects a quiz length below one.
	ErrInvalidQuestionCount = errors.New("question count must be at least 1")
	// ErrMalformedToken indicates an answer token that was not minted by this bot.
	ErrMalformedToken = errors.New("malformed answer token")
	// ErrInvalidCSV indicates a question import without any usable row.
	ErrInvalidCSV = errors.New("invalid question csv")
)
