// Package ws pushes signal snapshots to websocket clients.
package ws

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SignalEngine/internal/domain/models"
	applogger "SignalEngine/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Snapshotter returns the current signal list.
type Snapshotter interface {
	List(maxAge time.Duration) []models.SignalView
}

// Frame is one push to a client.
type Frame struct {
	Type    string              `json:"type"`
	SentAt  time.Time           `json:"sent_at"`
	Signals []models.SignalView `json:"signals"`
}

// StreamHandler serves /ws/signals.
type StreamHandler struct {
	src      Snapshotter
	interval time.Duration
	maxAge   time.Duration
	upgrader websocket.Upgrader
	clients  atomic.Int64
	l        *applogger.Logger
}

func NewStreamHandler(src Snapshotter, interval, maxAge time.Duration, l *applogger.Logger) *StreamHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &StreamHandler{
		src:      src,
		interval: interval,
		maxAge:   maxAge,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		l: l,
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Stream)
}

// Clients returns the number of connected clients.
func (h *StreamHandler) Clients() int64 { return h.clients.Load() }

func (h *StreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	n := h.clients.Add(1)
	defer h.clients.Add(-1)
	h.l.Debug("ws client connected", applogger.String("remote", c.RealIP()), applogger.Int64("clients", n))

	done := make(chan struct{})
	go h.readPump(conn, done)

	if err := h.push(conn); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			if err := h.push(conn); err != nil {
				h.l.Debug("ws write failed", applogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (h *StreamHandler) push(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Frame{
		Type:    "snapshot",
		SentAt:  time.Now().UTC(),
		Signals: h.src.List(h.maxAge),
	})
}

// readPump drains client frames so pongs and close frames are processed.
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
