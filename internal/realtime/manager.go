package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	rateLimitFrames = 20
	rateLimitWindow = 10 * time.Second
	sendBufferSize  = 256
)

type Client struct {
	ID          string
	UserID      string
	Username    string
	Conn        *websocket.Conn
	Send        chan []byte
	LastActive  time.Time
	ConnectedAt time.Time

	hub        *Hub
	rateTokens int
	rateLast   time.Time
	closeOnce  sync.Once
	mu         sync.Mutex
}

// NewClient builds a client with the default send buffer. conn may be nil in tests.
func NewClient(conn *websocket.Conn, userID, username string) *Client {
	now := time.Now()
	return &Client{
		ID:          uuid.NewString(),
		UserID:      userID,
		Username:    username,
		Conn:        conn,
		Send:        make(chan []byte, sendBufferSize),
		LastActive:  now,
		ConnectedAt: now,
	}
}

// Hub fans frames out to rooms. Delivery is non-blocking; a client whose
// buffer is full is dropped.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	mu      sync.RWMutex
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		now:     time.Now,
	}
}

// Run sweeps connections that stopped answering pings until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(pongWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.sweep(2 * pongWait)
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	c.hub = h
	c.rateTokens = rateLimitFrames
	c.rateLast = h.now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.SetActiveConnections(int64(count))
}

// Unregister removes c from every room and closes its send channel once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.detachLocked(c)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.SetActiveConnections(int64(count))
	}
}

func (h *Hub) detachLocked(c *Client) {
	delete(h.clients, c)
	for room, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	c.closeOnce.Do(func() { close(c.Send) })
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// PublishToUser emits a server-side event to every connection of userID.
func (h *Hub) PublishToUser(userID, event string, data interface{}) {
	h.Publish(UserRoom(userID), event, data, nil)
}

func (h *Hub) PublishToClub(clubID, event string, data interface{}) {
	h.Publish(ClubRoom(clubID), event, data, nil)
}

// Publish delivers a frame to room, skipping except. It returns the number of
// clients the frame was queued for.
func (h *Hub) Publish(room, event string, data interface{}, except *Client) int {
	frame, err := h.encode(event, data)
	if err != nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	return h.deliver(targets, frame)
}

// Broadcast delivers a frame to every connection except one.
func (h *Hub) Broadcast(event string, data interface{}, except *Client) int {
	frame, err := h.encode(event, data)
	if err != nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	return h.deliver(targets, frame)
}

func (h *Hub) encode(event string, data interface{}) ([]byte, error) {
	frame, err := json.Marshal(ServerFrame{Event: event, Data: data, Timestamp: h.now().UTC()})
	if err != nil {
		logger.Error("realtime_encode_failed", "event", event, "error", err)
	}
	return frame, err
}

func (h *Hub) deliver(targets []*Client, frame []byte) int {
	metrics.IncrementBroadcasts()
	delivered := 0
	var slow []*Client
	// Sends happen under the read lock so Unregister cannot close a channel mid-send.
	h.mu.RLock()
	for _, c := range targets {
		if _, ok := h.clients[c]; !ok {
			continue
		}
		select {
		case c.Send <- frame:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		metrics.IncrementBroadcastFails()
		logger.Warn("realtime_slow_consumer_dropped", "user_id", c.UserID, "conn_id", c.ID)
		h.Unregister(c)
	}
	return delivered
}

// SendTo queues a frame for a single client without touching rooms.
func (h *Hub) SendTo(c *Client, event string, data interface{}) bool {
	frame, err := h.encode(event, data)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) sweep(idle time.Duration) {
	cutoff := h.now().Add(-idle)
	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		if c.GetLastActive().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range stale {
		logger.Info("realtime_stale_connection_closed", "user_id", c.UserID, "conn_id", c.ID)
		h.Unregister(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	for _, c := range clients {
		h.detachLocked(c)
	}
	h.mu.Unlock()
	metrics.SetActiveConnections(0)
}

func (c *Client) consumeRateToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.rateLast) >= rateLimitWindow {
		c.rateTokens = rateLimitFrames
		c.rateLast = now
	}
	if c.rateTokens <= 0 {
		return false
	}
	c.rateTokens--
	return true
}

func (c *Client) UpdateActivity() {
	c.mu.Lock()
	c.LastActive = time.Now()
	c.mu.Unlock()
}

func (c *Client) GetLastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LastActive
}

func (c *Client) ReadPump(d *Dispatcher) {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
		logger.Debug("realtime_client_disconnected", "user_id", c.UserID, "conn_id", c.ID)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.UpdateActivity()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("realtime_read_error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.UpdateActivity()

		if !c.consumeRateToken() {
			metrics.IncrementRateLimited()
			c.hub.SendTo(c, EventError, ErrorPayload{Message: "rate limit exceeded"})
			continue
		}
		d.Dispatch(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
