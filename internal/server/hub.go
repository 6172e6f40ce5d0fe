package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// hub tracks WebSocket clients and fans out messages to them.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *log.Logger
	metrics *Metrics
}

type client struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func newHub(logger *log.Logger, m *Metrics) *hub {
	return &hub{clients: make(map[*client]struct{}), logger: logger, metrics: m}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(n)
}

func (h *hub) remove(c *client) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.conn.Close()
	})
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(n)
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

// broadcast sends data to every client. Clients that fail the write are
// dropped.
func (h *hub) broadcast(data []byte) {
	for _, c := range h.snapshot() {
		if err := c.send(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping client", "remote", c.conn.RemoteAddr(), "err", err)
			h.remove(c)
			continue
		}
		h.metrics.messageSent(len(data))
	}
}

// run pings clients until ctx is canceled.
func (h *hub) run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range h.snapshot() {
				if err := c.send(websocket.PingMessage, nil); err != nil {
					h.remove(c)
				}
			}
		}
	}
}

func (h *hub) closeAll() {
	for _, c := range h.snapshot() {
		_ = c.send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
		h.remove(c)
	}
}

// send serializes writes; gorilla connections allow one writer at a time.
func (c *client) send(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the connection, sends the current state and then
// applies every message the client sends.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}

	s.relayMu.Lock()
	state, err := s.stateMessage()
	if err == nil {
		err = c.send(websocket.TextMessage, state)
	}
	if err == nil {
		s.hub.add(c)
	}
	s.relayMu.Unlock()
	if err != nil {
		s.logger.Warn("send initial state", "err", err)
		_ = conn.Close()
		return
	}
	s.logger.Debug("client connected", "remote", conn.RemoteAddr())

	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.hub.remove(c)

	c.conn.SetReadLimit(maxBody)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("client read failed", "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if _, err := s.apply(context.Background(), data); err != nil {
			s.logger.Warn("undecodable client message", "err", err)
		}
	}
}
