package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/examarena/examarena-backend/internal/middleware"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/service"
	ws "github.com/examarena/examarena-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam-taking channel: autosave writes and
// proctoring violation reports.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exams/:exam_id/stream
// Upgrades to WebSocket for real-time autosave and violation reporting.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	// Validate the attempt before upgrading so a rejected taker gets a
	// clean HTTP error instead of a dropped socket.
	if _, err := h.attemptService.GetState(c.Request.Context(), examID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no attempt for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Taker connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, examID, userID, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, examID, userID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, examID, userID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave buffers one answer in Redis and queues it for persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, examID, userID uuid.UUID, msg *ws.RequestPayload) {
	ctx := context.Background()

	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	// Validate QID is a well-formed UUID to prevent Redis key injection.
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if msg.Answer != "" && msg.Answer != "A" && msg.Answer != "B" && msg.Answer != "C" && msg.Answer != "D" {
		ws.WriteError(conn, "invalid answer option")
		return
	}

	if err := h.attemptService.Autosave(ctx, examID, userID, questionID, msg.Answer, msg.Marked); err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteSuccess(conn, "saved")
}

// handleSubmit finalizes the attempt from the autosaved answer set.
// Used by the client's countdown when the timer hits zero; answers
// already buffered in Redis are the submitted set.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, examID, userID uuid.UUID) {
	attempt, err := h.attemptService.Submit(context.Background(), examID, userID, &model.SubmitAttemptRequest{})
	if err != nil {
		wsLog.Warn().Err(err).Msg("WebSocket submit rejected")
		ws.WriteError(conn, "submit failed")
		return
	}

	wsLog.Info().Str("attempt_id", attempt.ID.String()).Msg("Attempt submitted over WebSocket")
	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:     ws.EventSubmitted,
		AttemptID: attempt.ID.String(),
		Status:    string(attempt.Status),
	})
}

// handleViolation queues a proctoring event for persistence.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, examID, userID uuid.UUID, msg *ws.RequestPayload) {
	if msg.Event == "" {
		ws.WriteError(conn, "event is required")
		return
	}

	if err := h.attemptService.ReportViolation(context.Background(), examID, userID, msg.Event); err != nil {
		wsLog.Error().Err(err).Msg("Violation report error")
		ws.WriteError(conn, "report failed")
		return
	}

	ws.WriteSuccess(conn, "recorded")
}
