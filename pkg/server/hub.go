package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/routefilter/pkg/filter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is the per-client queue; a client that falls further
	// behind is disconnected.
	sendBuffer = 64
)

// EventMessage is the JSON form of a filter.Event sent to subscribers.
type EventMessage struct {
	Kind       string    `json:"kind"`
	Route      string    `json:"route"`
	Params     []*string `json:"params"`
	Status     string    `json:"status"`
	Phase      string    `json:"phase,omitempty"`
	Key        string    `json:"key,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// NewEventMessage converts ev.
func NewEventMessage(ev filter.Event) EventMessage {
	d := ev.Dispatch
	msg := EventMessage{
		Kind:   ev.Kind.String(),
		Route:  d.Route(),
		Params: paramsJSON(d.Params()),
		Status: d.Status().String(),
		Time:   time.Now(),
	}
	switch ev.Kind {
	case filter.EventHook:
		msg.Phase = ev.Phase.String()
		msg.Key = ev.Key
		msg.Outcome = ev.Outcome.String()
		msg.DurationMS = durationMS(ev.Duration)
	case filter.EventCompleted, filter.EventAborted, filter.EventFailed:
		msg.DurationMS = durationMS(ev.Duration)
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans dispatch events out to WebSocket subscribers.
// It implements filter.Observer; Observe never blocks on a slow client.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default().With("component", "hub"),
	}
}

// SetCheckOrigin sets the origin check used on upgrade. The default rejects
// cross-origin requests.
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) {
	h.mu.Lock()
	h.upgrader.CheckOrigin = fn
	h.mu.Unlock()
}

// AllowOrigins returns an origin check that accepts same-origin requests,
// requests without an Origin header and the listed origins. "*" accepts any
// origin.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Observe implements filter.Observer.
func (h *Hub) Observe(ev filter.Event) {
	data, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow event subscriber", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	upgrader := h.upgrader
	h.mu.RUnlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Debug("event subscriber read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
