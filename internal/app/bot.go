package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"guild-quiz-bot/internal/domain"
)

// User-facing notice texts.
const (
	MessageCooldown    = "You cannot restart the quiz before your current deadline. Ask an administrator if this looks wrong."
	MessageRetry       = "The time limit has passed. Start the quiz again to retry."
	MessageSystemError = "A system error occurred. Please contact an administrator."
	MessageNoSession   = "No quiz in progress. Start a quiz first."
	MessageCompleted   = "Thanks for playing! The quiz is over."
)

// ReplySink delivers outgoing messages to the chat platform.
type ReplySink interface {
	SendQuestion(ctx context.Context, q domain.QuestionPayload) error
	SendNotice(ctx context.Context, n domain.Notice) error
}

// Bot is the trigger-handler boundary: it runs the engine, turns outcomes
// into replies and logs failures instead of surfacing them.
type Bot struct {
	service *QuizService
}

func NewBot(service *QuizService) *Bot {
	return &Bot{service: service}
}

// HandleStart reacts to a "start quiz" trigger.
func (b *Bot) HandleStart(ctx context.Context, guildID string, user domain.User, sink ReplySink) domain.StartStatus {
	outcome, err := b.service.Start(ctx, guildID, user)
	if err != nil {
		log.Error().Err(err).Str("guildId", guildID).Str("userId", user.ID).Msg("start quiz")
		return outcome.Status
	}

	switch outcome.Status {
	case domain.StartFirstQuestion:
		b.sendQuestion(ctx, sink, *outcome.Question)
	case domain.StartCooldownActive:
		b.sendNotice(ctx, sink, guildID, user.ID, domain.NoticeCooldown, MessageCooldown)
	}
	return outcome.Status
}

// HandleAnswer reacts to an option picked on a question message.
func (b *Bot) HandleAnswer(ctx context.Context, guildID, userID, token string, chosen domain.OptionKey, sink ReplySink) domain.AnswerStatus {
	outcome, err := b.service.SubmitAnswer(ctx, guildID, userID, token, chosen)
	if err != nil {
		log.Error().Err(err).Str("guildId", guildID).Str("userId", userID).Msg("submit answer")
		return outcome.Status
	}

	switch outcome.Status {
	case domain.AnswerNextQuestion:
		b.sendQuestion(ctx, sink, *outcome.Question)
	case domain.AnswerCompleted:
		b.sendNotice(ctx, sink, guildID, userID, domain.NoticeCompleted, MessageCompleted)
	case domain.AnswerRetry:
		b.sendNotice(ctx, sink, guildID, userID, domain.NoticeRetry, MessageRetry)
	case domain.AnswerSystemError:
		b.sendNotice(ctx, sink, guildID, userID, domain.NoticeSystemError, MessageSystemError)
	case domain.AnswerNoSession:
		b.sendNotice(ctx, sink, guildID, userID, domain.NoticeNoSession, MessageNoSession)
	}
	return outcome.Status
}

func (b *Bot) sendQuestion(ctx context.Context, sink ReplySink, q domain.QuestionPayload) {
	if err := sink.SendQuestion(ctx, q); err != nil {
		log.Error().Err(err).Str("guildId", q.GuildID).Str("userId", q.UserID).Msg("send question")
	}
}

func (b *Bot) sendNotice(ctx context.Context, sink ReplySink, guildID, userID string, kind domain.NoticeKind, msg string) {
	n := domain.Notice{GuildID: guildID, UserID: userID, Kind: kind, Message: msg}
	if err := sink.SendNotice(ctx, n); err != nil {
		log.Error().Err(err).Str("guildId", guildID).Str("userId", userID).Str("kind", string(kind)).Msg("send notice")
	}
}
