package websocket

import (
	"context"
	"net/http"

	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// bufferSize is the number of ChangeSets queued per connection
const bufferSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChangeSource registers change listeners
type ChangeSource interface {
	AddChangeListener(fn ports.Listener) ports.ListenerID
	RemoveChangeListener(id ports.ListenerID) bool
}

// ChangeMessage is the JSON frame sent for each ChangeSet.
// Area is always null because all area names alias one namespace.
type ChangeMessage struct {
	Changes ports.ChangeSet `json:"changes"`
	Area    *string         `json:"area"`
}

// Handler handles WebSocket connections
type Handler struct {
	source ChangeSource
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(source ChangeSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		source: source,
		logger: logger,
	}
}

// HandleChangeStream streams ChangeSets to the client until it disconnects
func (h *Handler) HandleChangeStream(c *gin.Context) {
	// Upgrade connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	changes := make(chan ports.ChangeSet, bufferSize)
	id := h.source.AddChangeListener(func(cs ports.ChangeSet, _ string) {
		// Send to channel (non-blocking)
		select {
		case changes <- cs:
		default:
			h.logger.Warn("change channel full, dropping change set",
				zap.Int("keys", len(cs)))
		}
	})
	defer h.source.RemoveChangeListener(id)

	// Detect client disconnects; incoming frames are ignored
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send change sets to client
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket connection closed",
				zap.String("client", c.ClientIP()))
			return
		case cs := <-changes:
			if err := conn.WriteJSON(ChangeMessage{Changes: cs}); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}
		}
	}
}
