package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"guild-quiz-bot/internal/app"
	"guild-quiz-bot/internal/domain"
)

var errConnClosed = errors.New("connection closed")

// WSHandler is the chat gateway: one websocket per member, carrying
// start/answer interactions in and questions/notices out.
type WSHandler struct {
	bot      *app.Bot
	upgrader websocket.Upgrader
}

func NewWSHandler(bot *app.Bot) *WSHandler {
	return &WSHandler{
		bot: bot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Token  string `json:"token"`
	Option string `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connSink queues replies for the connection's writer goroutine.
type connSink struct {
	send       chan<- outboundMessage
	writerDone <-chan struct{}
}

func (s connSink) SendQuestion(ctx context.Context, q domain.QuestionPayload) error {
	return s.push(ctx, outboundMessage{Type: "question", Payload: q})
}

func (s connSink) SendNotice(ctx context.Context, n domain.Notice) error {
	return s.push(ctx, outboundMessage{Type: "notice", Payload: n})
}

func (s connSink) push(ctx context.Context, msg outboundMessage) error {
	select {
	case s.send <- msg:
		return nil
	case <-s.writerDone:
		return errConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz bot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guildId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if guildID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing guildId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	sink := connSink{send: send, writerDone: writerDone}
	user := domain.User{ID: userID, Name: displayName}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("userId", userID).Msg("ws write error")
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			h.bot.HandleStart(ctx, guildID, user, sink)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Token == "" {
				_ = sink.push(ctx, outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			h.bot.HandleAnswer(ctx, guildID, userID, payload.Token, domain.OptionKey(payload.Option), sink)
		default:
			_ = sink.push(ctx, outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(send)
	<-writerDone
}
