package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WSHandler streams OAuth-completion and tool-progress notifications to
// connected browser and agent clients.
type WSHandler struct {
	bus      *service.NotificationBus
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a websocket handler
func NewWSHandler(bus *service.NotificationBus, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer and cookie auth
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Serve handles GET /ws. Each connection receives the OAuth completions
// for its own user plus all progress events for tools it invoked.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := CallerID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	oauthID, oauthCh := h.bus.SubscribeOAuth()
	defer h.bus.UnsubscribeOAuth(oauthID)

	progressID, progressCh := h.bus.SubscribeProgress()
	defer h.bus.UnsubscribeProgress(progressID)

	// Drain the read side so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-oauthCh:
			if event.UserID != userID {
				continue
			}
			if err := h.write(conn, wsEnvelope{Type: "oauth_completed", Payload: event}); err != nil {
				return
			}

		case event := <-progressCh:
			if err := h.write(conn, wsEnvelope{Type: "progress", Payload: event}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, env wsEnvelope) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(env); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
