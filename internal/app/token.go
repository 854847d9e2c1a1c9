package app

import (
	"strings"

	"guild-quiz-bot/internal/domain"
)

const tokenPrefix = "quiz"

// EncodeToken binds a displayed question to its owning answer record.
// The result is used as the custom id of the select control.
func EncodeToken(answerID, questionID string) string {
	return tokenPrefix + ":" + answerID + ":" + questionID
}

// DecodeToken reverses EncodeToken. Tokens from other interactions yield ErrMalformedToken.
func DecodeToken(token string) (answerID, questionID string, err error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != tokenPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", domain.ErrMalformedToken
	}
	return parts[1], parts[2], nil
}
