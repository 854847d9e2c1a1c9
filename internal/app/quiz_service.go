package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"guild-quiz-bot/internal/domain"
)

// SessionRepository abstracts how per-user sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Get(ctx context.Context, guildID, userID string) (domain.Session, bool, error)
	// Replace writes next only if the stored session still carries prevAnswerID
	// ("" means nothing stored). It returns domain.ErrSessionConflict otherwise.
	Replace(ctx context.Context, next domain.Session, prevAnswerID string) error
	// Advance moves CurrentIndex from fromIndex to fromIndex+1 for the given answer id,
	// or returns domain.ErrSessionConflict when the stored cursor no longer matches.
	Advance(ctx context.Context, guildID, userID, answerID string, fromIndex int) error
}

// AnswerRepository persists the answer ledger used for export.
type AnswerRepository interface {
	MintID(ctx context.Context, guildID string) (string, error)
	Create(ctx context.Context, record domain.AnswerRecord) error
	UpdateDetail(ctx context.Context, guildID, answerID, questionID string, answer domain.OptionKey, at time.Time) error
	Finish(ctx context.Context, guildID, answerID string, finishedAt time.Time, durationMs int64) error
	ListFinished(ctx context.Context, guildID string) ([]domain.AnswerRecord, error)
}

// GuildRepository reads and writes guild settings.
type GuildRepository interface {
	GetConfig(ctx context.Context, guildID string) (domain.GuildConfig, bool, error)
	PutConfig(ctx context.Context, cfg domain.GuildConfig) error
}

// QuestionBank loads a guild's questions (from cache/backing store).
type QuestionBank interface {
	ListQuestions(ctx context.Context, guildID string) ([]domain.Question, error)
}

// EventPublisher announces finished sessions to other services.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, event domain.CompletedEvent) error
}

// QuizService drives the per-user quiz session state machine.
type QuizService struct {
	sessions  SessionRepository
	answers   AnswerRepository
	guilds    GuildRepository
	questions QuestionBank
	events    EventPublisher
	selector  *Selector
	now       func() time.Time
	location  *time.Location
	defaults  domain.GuildConfig
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithSelector replaces the random source used for question and option order.
func WithSelector(sel *Selector) Option {
	return func(s *QuizService) { s.selector = sel }
}

// WithEventPublisher enables completion events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *QuizService) { s.events = p }
}

// WithLocation sets the timezone used for export timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *QuizService) { s.location = loc }
}

// WithDefaults sets the settings written when a guild is registered.
func WithDefaults(cooldownSeconds, questionCount int) Option {
	return func(s *QuizService) {
		s.defaults.CooldownSeconds = cooldownSeconds
		s.defaults.QuestionCount = questionCount
	}
}

func NewQuizService(sessions SessionRepository, answers AnswerRepository, guilds GuildRepository, questions QuestionBank, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		answers:   answers,
		guilds:    guilds,
		questions: questions,
		selector:  NewSelector(),
		now:       time.Now,
		location:  time.UTC,
		defaults: domain.GuildConfig{
			CooldownSeconds: domain.DefaultCooldownSeconds,
			QuestionCount:   domain.DefaultQuestionCount,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterGuild stores default settings for a newly joined guild. Existing settings are kept.
func (s *QuizService) RegisterGuild(ctx context.Context, guildID, name string) (domain.GuildConfig, error) {
	cfg, ok, err := s.guilds.GetConfig(ctx, guildID)
	if err != nil {
		return domain.GuildConfig{}, fmt.Errorf("get guild config: %w", err)
	}
	if ok {
		return cfg, nil
	}
	cfg = s.defaults
	cfg.GuildID = guildID
	cfg.Name = name
	if err := cfg.Validate(); err != nil {
		return domain.GuildConfig{}, err
	}
	if err := s.guilds.PutConfig(ctx, cfg); err != nil {
		return domain.GuildConfig{}, fmt.Errorf("put guild config: %w", err)
	}
	log.Info().Str("guildId", guildID).Int("cooldownSeconds", cfg.CooldownSeconds).Int("questionCount", cfg.QuestionCount).Msg("guild registered")
	return cfg, nil
}

// Start opens a new session for user and returns the first question.
// A live session (deadline not yet passed) blocks the restart.
func (s *QuizService) Start(ctx context.Context, guildID string, user domain.User) (domain.StartOutcome, error) {
	var (
		prev    domain.Session
		hasPrev bool
		cfg     domain.GuildConfig
		hasCfg  bool
		bank    []domain.Question
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, hasPrev, err = s.sessions.Get(gctx, guildID, user.ID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cfg, hasCfg, err = s.guilds.GetConfig(gctx, guildID)
		if err != nil {
			return fmt.Errorf("get guild config: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bank, err = s.questions.ListQuestions(gctx, guildID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.StartOutcome{}, err
	}

	if !hasCfg {
		return domain.StartOutcome{Status: domain.StartNotConfigured}, nil
	}
	if len(bank) == 0 {
		return domain.StartOutcome{Status: domain.StartNoQuestions}, nil
	}
	if err := cfg.Validate(); err != nil {
		return domain.StartOutcome{}, fmt.Errorf("guild %s: %w", guildID, err)
	}

	now := s.now()
	if hasPrev && !prev.Expired(now) {
		return domain.StartOutcome{Status: domain.StartCooldownActive}, nil
	}

	deadline, err := ComputeDeadline(now, cfg.CooldownSeconds)
	if err != nil {
		return domain.StartOutcome{}, err
	}
	answerID, err := s.answers.MintID(ctx, guildID)
	if err != nil {
		return domain.StartOutcome{}, fmt.Errorf("mint answer id: %w", err)
	}

	byID := indexQuestions(bank)
	ids := make([]string, 0, len(bank))
	for _, q := range bank {
		ids = append(ids, q.ID)
	}

	session := domain.Session{
		GuildID:       guildID,
		UserID:        user.ID,
		UserName:      user.Name,
		AnswerID:      answerID,
		QuestionOrder: s.selector.SelectSubset(ids, cfg.QuestionCount),
		CurrentIndex:  0,
		StartedAt:     now,
		Deadline:      deadline,
	}
	prevAnswerID := ""
	if hasPrev {
		session.Round = prev.Round + 1
		prevAnswerID = prev.AnswerID
	}

	// ledger first; unfinished records never reach the export
	if err := s.answers.Create(ctx, newAnswerRecord(session, byID)); err != nil {
		return domain.StartOutcome{}, fmt.Errorf("create answer record: %w", err)
	}
	if err := s.sessions.Replace(ctx, session, prevAnswerID); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			log.Info().Str("guildId", guildID).Str("userId", user.ID).Msg("concurrent start lost the race")
			return domain.StartOutcome{Status: domain.StartCooldownActive}, nil
		}
		return domain.StartOutcome{}, fmt.Errorf("store session: %w", err)
	}

	payload := s.present(session, byID[session.QuestionOrder[0]])
	return domain.StartOutcome{
		Status:   domain.StartFirstQuestion,
		Question: &payload,
		Session:  &session,
	}, nil
}

// SubmitAnswer applies chosen to the question bound by token.
func (s *QuizService) SubmitAnswer(ctx context.Context, guildID, userID, token string, chosen domain.OptionKey) (domain.AnswerOutcome, error) {
	session, ok, err := s.sessions.Get(ctx, guildID, userID)
	if err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("get session: %w", err)
	}
	if !ok {
		return domain.AnswerOutcome{Status: domain.AnswerNoSession}, nil
	}

	answerID, questionID, err := DecodeToken(token)
	if err != nil {
		return domain.AnswerOutcome{Status: domain.AnswerStale}, nil
	}
	current, ok := session.CurrentQuestionID()
	if !ok || current != questionID || session.AnswerID != answerID || !chosen.Valid() {
		return domain.AnswerOutcome{Status: domain.AnswerStale}, nil
	}

	now := s.now()
	last := session.CurrentIndex == len(session.QuestionOrder)-1
	if session.Expired(now) {
		if last {
			log.Warn().
				Str("guildId", guildID).
				Str("userId", userID).
				Str("answerId", answerID).
				Int("currentIndex", session.CurrentIndex).
				Msg("answer for final question arrived after deadline")
			return domain.AnswerOutcome{Status: domain.AnswerSystemError}, nil
		}
		return domain.AnswerOutcome{Status: domain.AnswerRetry}, nil
	}

	if err := s.sessions.Advance(ctx, guildID, userID, answerID, session.CurrentIndex); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			return domain.AnswerOutcome{Status: domain.AnswerStale}, nil
		}
		return domain.AnswerOutcome{}, fmt.Errorf("advance session: %w", err)
	}
	if err := s.answers.UpdateDetail(ctx, guildID, answerID, questionID, chosen, now); err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("update answer detail: %w", err)
	}

	if last {
		durationMs := now.Sub(session.StartedAt).Milliseconds()
		if err := s.answers.Finish(ctx, guildID, answerID, now, durationMs); err != nil {
			return domain.AnswerOutcome{}, fmt.Errorf("finish answer record: %w", err)
		}
		s.publishCompleted(ctx, session, now, durationMs)
		return domain.AnswerOutcome{Status: domain.AnswerCompleted}, nil
	}

	session.CurrentIndex++
	nextID := session.QuestionOrder[session.CurrentIndex]
	next, found, err := s.findQuestion(ctx, guildID, nextID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if !found {
		log.Warn().Str("guildId", guildID).Str("questionId", nextID).Msg("next question missing from bank")
		return domain.AnswerOutcome{Status: domain.AnswerSystemError}, nil
	}
	payload := s.present(session, next)
	return domain.AnswerOutcome{Status: domain.AnswerNextQuestion, Question: &payload}, nil
}

// ExportCSV builds the result table of every finished session in the guild.
func (s *QuizService) ExportCSV(ctx context.Context, guildID string) (domain.ExportOutcome, error) {
	records, err := s.answers.ListFinished(ctx, guildID)
	if err != nil {
		return domain.ExportOutcome{}, fmt.Errorf("list finished answers: %w", err)
	}
	if len(records) == 0 {
		return domain.ExportOutcome{}, nil
	}
	bank, err := s.questions.ListQuestions(ctx, guildID)
	if err != nil {
		return domain.ExportOutcome{}, fmt.Errorf("list questions: %w", err)
	}
	return domain.ExportOutcome{Rows: FormatCSV(bank, records, s.location)}, nil
}

func (s *QuizService) findQuestion(ctx context.Context, guildID, questionID string) (domain.Question, bool, error) {
	bank, err := s.questions.ListQuestions(ctx, guildID)
	if err != nil {
		return domain.Question{}, false, fmt.Errorf("list questions: %w", err)
	}
	for _, q := range bank {
		if q.ID == questionID {
			return q, true, nil
		}
	}
	return domain.Question{}, false, nil
}

// present renders the question at the session cursor with a fresh option order.
func (s *QuizService) present(session domain.Session, q domain.Question) domain.QuestionPayload {
	keys := Shuffle(s.selector, domain.OptionKeys)
	choices := make([]domain.Choice, 0, len(keys))
	for i, key := range keys {
		choices = append(choices, domain.Choice{
			Label: fmt.Sprintf("%d. %s", i+1, q.Options[key]),
			Value: key,
		})
	}
	return domain.QuestionPayload{
		GuildID:  session.GuildID,
		UserID:   session.UserID,
		Token:    EncodeToken(session.AnswerID, q.ID),
		Position: session.CurrentIndex + 1,
		Total:    len(session.QuestionOrder),
		Prompt:   q.Prompt,
		ImageURL: q.ImageURL,
		Choices:  choices,
		Deadline: session.Deadline,
	}
}

func (s *QuizService) publishCompleted(ctx context.Context, session domain.Session, finishedAt time.Time, durationMs int64) {
	if s.events == nil {
		return
	}
	event := domain.CompletedEvent{
		GuildID:       session.GuildID,
		UserID:        session.UserID,
		AnswerID:      session.AnswerID,
		Round:         session.Round,
		QuestionCount: len(session.QuestionOrder),
		StartedAt:     session.StartedAt,
		FinishedAt:    finishedAt,
		DurationMs:    durationMs,
	}
	if err := s.events.PublishCompleted(ctx, event); err != nil {
		log.Error().Err(err).Str("guildId", session.GuildID).Str("answerId", session.AnswerID).Msg("publish completed event")
	}
}

func newAnswerRecord(session domain.Session, byID map[string]domain.Question) domain.AnswerRecord {
	details := make([]domain.AnswerDetail, 0, len(session.QuestionOrder))
	for _, id := range session.QuestionOrder {
		q := byID[id]
		details = append(details, domain.AnswerDetail{
			QuestionID:    id,
			Prompt:        q.Prompt,
			CorrectOption: q.CorrectOption,
		})
	}
	return domain.AnswerRecord{
		AnswerID:      session.AnswerID,
		GuildID:       session.GuildID,
		UserID:        session.UserID,
		UserName:      session.UserName,
		StartedAt:     session.StartedAt,
		Round:         session.Round,
		QuestionCount: len(session.QuestionOrder),
		Details:       details,
	}
}

func indexQuestions(bank []domain.Question) map[string]domain.Question {
	byID := make(map[string]domain.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
	return byID
}
