package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/middleware"
	ws "github.com/hlmaths/practice-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
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

// WSHandler streams live progress updates to connected clients.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ProgressStream godoc
// WS /ws/v1/progress/stream?token=...
// Pushes the user's updated totals after every attempt submission.
func (h *WSHandler) ProgressStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", claims.UserID).Logger()
	wsLog.Info().Msg("Progress stream connected")

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.ProgressChannel(claims.UserID))
	defer sub.Close()

	// Reader pump: answers pings and detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Progress stream closed")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := ws.DecodeProgressEvent(msg.Payload)
			if err != nil {
				wsLog.Warn().Err(err).Msg("Bad progress event payload")
				continue
			}
			if err := ws.WriteTyped(conn, ws.TotalsResponse{
				Event:      ws.EventTotals,
				QuestionID: ev.QuestionID,
				Totals:     ev.Totals,
			}); err != nil {
				return
			}
		}
	}
}
