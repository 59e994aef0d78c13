package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pandeptwidyaop/homelab-remote/internal/models"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StatusMessage is one frame of the status feed. The first frame carries
// every service; later frames carry a single transition.
type StatusMessage struct {
	Status   *models.ServiceStatus  `json:"status,omitempty"`
	Type     string                 `json:"type"`
	Statuses []models.ServiceStatus `json:"statuses,omitempty"`
}

type StreamHandler struct {
	poller *services.StatusPoller
}

func NewStreamHandler(poller *services.StatusPoller) *StreamHandler {
	return &StreamHandler{
		poller: poller,
	}
}

// WebSocket pushes the status snapshot followed by every up/down transition.
// GET /api/ws/status
func (h *StreamHandler) WebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Stream] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := h.poller.Subscribe()
	defer h.poller.Unsubscribe(ch)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// The client never sends data; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Stream] WebSocket read error: %v", err)
				}
				return
			}
		}
	}()

	write := func(msg StatusMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(msg)
	}

	if err := write(StatusMessage{Type: "snapshot", Statuses: h.poller.Statuses()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := write(StatusMessage{Type: "status", Status: &s}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Stream sends the same feed as server-sent events.
// GET /api/status/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := h.poller.Subscribe()
	defer h.poller.Unsubscribe(ch)

	writeEvent(c.Writer, "snapshot", h.poller.Statuses())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case s, ok := <-ch:
			if !ok {
				return false
			}
			writeEvent(w, "status", s)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func writeEvent(w io.Writer, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
