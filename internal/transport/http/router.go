package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"guild-quiz-bot/internal/app"
	"guild-quiz-bot/internal/domain"
)

// QuizAPI is the slice of the quiz service exposed over HTTP.
type QuizAPI interface {
	RegisterGuild(ctx context.Context, guildID, name string) (domain.GuildConfig, error)
	ExportCSV(ctx context.Context, guildID string) (domain.ExportOutcome, error)
}

// QuestionImporter loads a question CSV into a guild's bank.
type QuestionImporter interface {
	Import(ctx context.Context, guildID string, r io.Reader) (int, error)
}

// Handlers bundles the admin endpoints.
type Handlers struct {
	quiz     QuizAPI
	importer QuestionImporter
}

func NewHandlers(quiz QuizAPI, importer QuestionImporter) *Handlers {
	return &Handlers{quiz: quiz, importer: importer}
}

// NewRouter builds the gin engine with the gateway and admin routes.
func NewRouter(ws *WSHandler, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws", gin.WrapF(ws.ServeWS))

	guilds := r.Group("/guilds/:guildID")
	{
		guilds.POST("", h.RegisterGuild)
		guilds.POST("/questions", h.ImportQuestions)
		guilds.GET("/export", h.Export)
	}
	return r
}

type registerRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) RegisterGuild(c *gin.Context) {
	var req registerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	cfg, err := h.quiz.RegisterGuild(c.Request.Context(), c.Param("guildID"), req.Name)
	if err != nil {
		log.Error().Err(err).Str("guildId", c.Param("guildID")).Msg("register guild")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register guild"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ImportQuestions accepts either a multipart "file" field or a raw CSV body.
func (h *Handlers) ImportQuestions(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if c.ContentType() == "multipart/form-data" {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
			return
		}
		defer f.Close()
		body = f
	}

	n, err := h.importer.Import(c.Request.Context(), c.Param("guildID"), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCSV) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("guildId", c.Param("guildID")).Msg("import questions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import questions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (h *Handlers) Export(c *gin.Context) {
	guildID := c.Param("guildID")
	outcome, err := h.quiz.ExportCSV(c.Request.Context(), guildID)
	if err != nil {
		log.Error().Err(err).Str("guildId", guildID).Msg("export results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export results"})
		return
	}
	if outcome.NoData() {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := app.WriteCSV(&buf, outcome.Rows); err != nil {
		log.Error().Err(err).Str("guildId", guildID).Msg("encode export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export results"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+guildID+`-results.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
