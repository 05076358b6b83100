package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/logger"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/publisher"
)

// RoomConfig tunes the WebSocket transport.
type RoomConfig struct {
	SendBuffer      int `json:"send_buffer"`
	PingIntervalSec int `json:"ping_interval_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
	// AllowedOrigins restricts the upgrade. Empty allows every origin.
	AllowedOrigins []string `json:"allowed_origins"`
}

// SetDefaults applies sane defaults.
func (c *RoomConfig) SetDefaults() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.PingIntervalSec <= 0 {
		c.PingIntervalSec = 25
	}
	if c.WriteTimeoutSec <= 0 {
		c.WriteTimeoutSec = 10
	}
}

type wsClient struct {
	conn  *websocket.Conn
	rooms map[string]bool
	send  chan []byte
	once  sync.Once
	done  chan struct{}
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// RoomHub pushes events to WebSocket clients grouped in rooms. Every client
// joins the shipments room; authenticated clients also join their user room.
type RoomHub struct {
	cfg      RoomConfig
	upgrader websocket.Upgrader
	log      logger.Logger
	rec      coremetrics.SubscriberRecorder

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	dropped atomic.Uint64
}

var _ publisher.Sink = (*RoomHub)(nil)

// NewRoomHub creates a RoomHub. cfg must have its defaults applied; rec may be nil.
func NewRoomHub(cfg RoomConfig, rec coremetrics.SubscriberRecorder, log logger.Logger) *RoomHub {
	h := &RoomHub{cfg: cfg, log: log, rec: rec, clients: make(map[*wsClient]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *RoomHub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *RoomHub) Name() string            { return "websocket" }
func (h *RoomHub) Scope() publisher.Scope { return publisher.ScopeRooms }

// Clients returns the number of connected clients.
func (h *RoomHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (h *RoomHub) Dropped() uint64 { return h.dropped.Load() }

// Deliver queues ev on every client in one of its rooms. Slow clients miss it.
func (h *RoomHub) Deliver(ev events.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !inRooms(c, ev.Rooms) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

func inRooms(c *wsClient, rooms []string) bool {
	for _, r := range rooms {
		if c.rooms[r] {
			return true
		}
	}
	return false
}

// Handler upgrades requests to WebSocket connections. userOf resolves the
// caller's user id, empty for anonymous clients.
func (h *RoomHub) Handler(userOf func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debugf("websocket upgrade: %v", err)
			return
		}
		c := &wsClient{
			conn:  conn,
			rooms: map[string]bool{events.RoomShipments: true},
			send:  make(chan []byte, h.cfg.SendBuffer),
			done:  make(chan struct{}),
		}
		if uid := userOf(r); uid != "" {
			c.rooms[events.UserRoom(uid)] = true
		}
		h.add(c)
		go h.writePump(c)
		h.readPump(c)
	})
}

func (h *RoomHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.recordSubscribers(n)
}

func (h *RoomHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.stop()
	if ok {
		h.recordSubscribers(n)
	}
}

func (h *RoomHub) recordSubscribers(n int) {
	if h.rec != nil {
		_ = h.rec.RecordSubscribers(h.Name(), n)
	}
}

func (h *RoomHub) pingInterval() time.Duration {
	return time.Duration(h.cfg.PingIntervalSec) * time.Second
}

// readPump discards client messages and detects disconnects.
func (h *RoomHub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	wait := 2 * h.pingInterval()
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RoomHub) writePump(c *wsClient) {
	ticker := time.NewTicker(h.pingInterval())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	timeout := time.Duration(h.cfg.WriteTimeoutSec) * time.Second
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(timeout))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debugf("websocket write: %v", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *RoomHub) Close() error {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
	return nil
}
