package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/middleware"
	"github.com/opopir/opopir-backend/internal/service"
	ws "github.com/opopir/opopir-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams an open exam session: autosave, submit and timer
// resync over one socket instead of per-answer HTTP round trips.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/exams/:session_id/stream
// Upgrades to WebSocket for real-time autosave and submission.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Ownership and liveness check before upgrading; also yields the
	// server-side deadline for pong resyncs.
	state, err := h.sessionService.State(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Duration(state.RemainingSeconds * float64(time.Second)))

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Client connected")

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
			h.handleAutosave(conn, sessionID, claims.UserID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, sessionID, claims.UserID) {
				return
			}
		case ws.ActionPing:
			remaining := time.Until(deadline).Seconds()
			if remaining < 0 {
				remaining = 0
			}
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, RemainingSeconds: remaining})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records one answer through the same path as the HTTP
// endpoint: snapshot write plus persistence queue.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, sessionID uuid.UUID, userID int, msg *ws.RequestPayload) {
	err := h.sessionService.Answer(context.Background(), sessionID, userID, msg.Position, msg.Choice)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			ws.WriteError(conn, ve.Error())
		case errors.Is(err, service.ErrInvalidState):
			ws.WriteError(conn, "session no longer accepts answers")
		default:
			h.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Autosave error")
			ws.WriteError(conn, "save failed")
		}
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Position: msg.Position})
}

// handleSubmit closes the session; reports whether the stream should end.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, userID int) bool {
	session, err := h.sessionService.Submit(context.Background(), sessionID, userID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed")
		return false
	}

	wsLog.Info().Int("elapsed_s", session.ElapsedSeconds).Msg("Session submitted over WebSocket")
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Status: string(session.Status)})
	return true
}
