package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/eshopco/latencymetrics/server/internal/aggregate"
	"github.com/eshopco/latencymetrics/server/internal/api"
	"github.com/eshopco/latencymetrics/server/internal/telemetry"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxMessageSize bounds one inbound subscription request.
	maxMessageSize = 64 << 10
)

// Event names carried in Message.Event.
const (
	EventLatency = "latency"
	EventError   = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is applied by the api middleware in front of the hub.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string            `json:"event"`
	Data  *aggregate.Result `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Hub manages WebSocket clients. Each client subscribes with an aggregation
// request; the hub answers it immediately and re-sends it every interval.
type Hub struct {
	store    *telemetry.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	sub    *aggregate.Request // nil until the client subscribes
	closed bool
}

// New creates a Hub that reads from st and re-sends subscriptions every interval.
func New(st *telemetry.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast ticker loop. Run blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// A subscription may be given up front as ?regions=a,b&threshold_ms=N, or
// sent later as a JSON request message. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	initial, hasInitial, err := subscriptionFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if hasInitial {
		h.subscribe(c, initial)
	}

	go c.writePump()
	h.readPump(c) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// subscribe replaces c's subscription and sends its result right away.
func (h *Hub) subscribe(c *client, req aggregate.Request) {
	c.mu.Lock()
	c.sub = &req
	c.mu.Unlock()

	if data, err := h.buildMessage(req); err == nil {
		c.enqueue(data)
	}
}

func (h *Hub) broadcast() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		sub := c.subscription()
		if sub == nil {
			continue
		}
		data, err := h.buildMessage(*sub)
		if err != nil {
			continue
		}
		if !c.enqueue(data) {
			// Client's outgoing buffer is full; disconnect it.
			h.unregister(c)
		}
	}
}

func (h *Hub) buildMessage(req aggregate.Request) ([]byte, error) {
	return json.Marshal(Message{
		Event: EventLatency,
		Data:  aggregate.Aggregate(h.store, req),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.close()
	}
}

// readPump reads subscription requests from the client until the
// connection closes. Invalid requests are answered with an error event and
// leave the previous subscription in place.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		req, err := api.DecodeRequest(msg)
		if err != nil {
			log.Debug().Err(err).Msg("ws: rejected subscription")
			if data, mErr := json.Marshal(Message{Event: EventError, Error: err.Error()}); mErr == nil {
				c.enqueue(data)
			}
			continue
		}
		h.subscribe(c, req)
	}
}

func (c *client) subscription() *aggregate.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

// enqueue queues data without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscriptionFromQuery reads an optional initial subscription from the
// URL. Both regions and threshold_ms must be present for it to apply.
func subscriptionFromQuery(r *http.Request) (aggregate.Request, bool, error) {
	q := r.URL.Query()
	regions, threshold := q.Get("regions"), q.Get("threshold_ms")
	if regions == "" && threshold == "" {
		return aggregate.Request{}, false, nil
	}
	if regions == "" || threshold == "" {
		return aggregate.Request{}, false, &api.ValidationError{
			Field: "query", Msg: "both `regions` and `threshold_ms` are required to subscribe from the URL",
		}
	}
	t, err := api.ParseThreshold(threshold)
	if err != nil {
		return aggregate.Request{}, false, err
	}
	return aggregate.Request{Regions: strings.Split(regions, ","), ThresholdMs: t}, true, nil
}
