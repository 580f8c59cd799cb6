package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "live-quiz-backend/internal/errors"
	"live-quiz-backend/internal/services"
	"live-quiz-backend/internal/ws"
)

const (
	eventTimeout   = 10 * time.Second
	maxMessageSize = 8 << 10
)

type WSHandler struct {
	hub            *ws.Hub
	sessionService *services.SessionService
	log            *zap.Logger
}

func NewWSHandler(hub *ws.Hub, sessionService *services.SessionService, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, sessionService: sessionService, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type joinGameRequest struct {
	Pin      string `json:"pin"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type startGameRequest struct {
	Pin string `json:"pin"`
}

type nextQuestionRequest struct {
	Pin       string `json:"pin"`
	FromIndex *int64 `json:"from_index"`
}

type submitAnswerRequest struct {
	Pin           string `json:"pin"`
	PlayerID      uint   `json:"player_id"`
	AnswerIndex   *int   `json:"answer_index"`
	QuestionIndex *int64 `json:"question_index"`
}

// HandleWebSocket godoc
// @Summary      Live game connection
// @Description  Carries join_game, start_game, next_question and submit_answer events and the game's broadcasts
// @Tags         websocket
// @Router       /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})

	client := h.hub.Register(conn)
	defer h.hub.Unregister(client.ID)

	// pins this connection joined as host; only those can be driven from it
	hosted := make(map[string]bool)
	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed", zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(ws.PongWait))

		var msg ws.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reject(client.ID, "", apperrors.NewValidationError("message", "malformed JSON"))
			continue
		}
		h.dispatch(ctx, client.ID, hosted, msg)
	}
}

// dispatch runs one inbound event. Failures go back to the sender only.
// Starting and advancing a game needs a host join on the same connection.
func (h *WSHandler) dispatch(parent context.Context, connID string, hosted map[string]bool, msg ws.InboundMessage) {
	ctx, cancel := context.WithTimeout(parent, eventTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case services.EventJoinGame:
		var req joinGameRequest
		if err = decodeEvent(msg.Data, &req); err == nil {
			var res *services.JoinResult
			res, err = h.sessionService.Join(ctx, connID, req.Pin, req.Nickname, req.Role)
			if err == nil && res.Role == services.RoleHost {
				hosted[req.Pin] = true
			}
		}
	case services.EventStartGame:
		var req startGameRequest
		if err = decodeEvent(msg.Data, &req); err == nil {
			if err = requireHost(hosted, req.Pin); err == nil {
				err = h.sessionService.StartGame(ctx, req.Pin)
			}
		}
	case services.EventNextQuestion:
		var req nextQuestionRequest
		if err = decodeEvent(msg.Data, &req); err == nil {
			if err = requireHost(hosted, req.Pin); err == nil {
				err = h.sessionService.Advance(ctx, req.Pin, req.FromIndex)
			}
		}
	case services.EventSubmitAnswer:
		var req submitAnswerRequest
		if err = decodeEvent(msg.Data, &req); err == nil {
			if req.AnswerIndex == nil {
				err = apperrors.NewValidationError("answer_index", "is required")
				break
			}
			_, err = h.sessionService.SubmitAnswer(ctx, connID, req.Pin, req.PlayerID, *req.AnswerIndex, req.QuestionIndex)
		}
	default:
		err = apperrors.NewValidationError("type", fmt.Sprintf("unknown event %q", msg.Type))
	}

	if err != nil {
		h.reject(connID, msg.Type, err)
	}
}

func requireHost(hosted map[string]bool, pin string) error {
	if pin == "" {
		return apperrors.NewMissingSessionPinError()
	}
	if !hosted[pin] {
		return apperrors.NewUnauthorizedError("join as host to control game " + pin)
	}
	return nil
}

func decodeEvent(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.NewValidationError("data", "malformed payload")
	}
	return nil
}

func (h *WSHandler) reject(connID, eventType string, err error) {
	appErr := apperrors.As(err)
	fields := []zap.Field{
		zap.String("conn_id", connID),
		zap.String("event", eventType),
		zap.String("code", appErr.Code),
		zap.Error(err),
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.log.Error("ws event failed", fields...)
	} else {
		h.log.Debug("ws event rejected", fields...)
	}

	h.hub.Send(connID, ws.WSMessage{
		Type: services.EventError,
		Data: services.ErrorPayload{Message: appErr.Message, Code: appErr.Code},
	})
}
