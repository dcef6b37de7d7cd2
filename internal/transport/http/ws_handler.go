package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quizmaster-service/internal/app"
)

const wsWriteWait = 10 * time.Second

type WSHandler struct {
	api      *API
	service  *app.SubmissionService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(api *API, service *app.SubmissionService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		api:     api,
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	QuizID int64 `json:"quiz_id"`
}

// ServeWS streams new submissions of a quiz to its owner.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	quizID, err := pathID(r)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}

	// Subscribe before upgrading so ownership errors are plain HTTP responses.
	updates, cancel, err := h.service.Subscribe(r.Context(), quizID, user)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "quiz_id", quizID, "error", err)
		return
	}
	defer conn.Close()

	// The client only sends control frames; a read error means it went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, outboundMessage[subscribedPayload]{Type: "subscribed", Payload: subscribedPayload{QuizID: quizID}}); err != nil {
		return
	}
	for {
		select {
		case event, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, outboundMessage[any]{Type: "submission", Payload: event}); err != nil {
				h.logger.Warn("ws write error", "quiz_id", quizID, "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msg any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
