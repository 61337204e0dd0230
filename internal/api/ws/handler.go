package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// sendBuffer bounds per-client outbound messages; a client that falls
// this far behind is disconnected
const sendBuffer = 32

// Manager is the subset of the degradation manager the stream reads
// from.
type Manager interface {
	Dependencies() []string
	Health(name string) types.Health
	Watch(fn func(types.HealthEvent))
}

// Handler fans dependency health transitions out to WebSocket clients
type Handler struct {
	manager Manager
	mu      sync.RWMutex
	clients map[string]*client
	metrics *monitoring.Metrics
	log     *logging.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	filter map[string]struct{} // nil = all dependencies
}

// subscribe narrows the client to the named dependencies; an empty
// list restores the firehose
func (cl *client) subscribe(deps []string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if len(deps) == 0 {
		cl.filter = nil
		return
	}
	filter := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		filter[dep] = struct{}{}
	}
	cl.filter = filter
}

// wants reports whether the client's filter admits a dependency
func (cl *client) wants(dep string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.filter == nil {
		return true
	}
	_, ok := cl.filter[dep]
	return ok
}

// NewHandler creates a health stream handler subscribed to the manager
func NewHandler(manager Manager) *Handler {
	h := &Handler{
		manager: manager,
		clients: make(map[string]*client),
	}

	// One subscription fans out to every connected client.
	manager.Watch(h.broadcast)

	return h
}

// WithMetrics adds metrics tracking to the handler
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// WithLogger adds structured logging to the handler
func (h *Handler) WithLogger(log *logging.Logger) *Handler {
	h.log = log
	return h
}

// HandleConnection upgrades the request and serves the health stream
// until the client disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		}
		return
	}

	cl := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	if h.log != nil {
		h.log.Debug("Health stream client connected", zap.String("client", cl.id))
	}

	go h.writePump(cl)

	h.sendEnvelope(cl, "system", map[string]interface{}{
		"type":      "system",
		"message":   "Connected to FitOS health stream",
		"client_id": cl.id,
	})
	h.sendSnapshot(cl)

	h.readLoop(cl)
	h.drop(cl)
}

// Close disconnects every client, for server shutdown
func (h *Handler) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		h.drop(cl)
	}
}

// Clients reports how many clients are connected
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast delivers one health transition to every client. Registered
// as the manager watcher, so it must never block.
func (h *Handler) broadcast(ev types.HealthEvent) {
	data, err := sonic.Marshal(map[string]interface{}{
		"type":       "health",
		"dependency": ev.Dependency,
		"from":       ev.From,
		"to":         ev.To,
		"reason":     ev.Reason,
		"timestamp":  ev.At.Unix(),
	})
	if err != nil {
		if h.log != nil {
			h.log.Error("Failed to encode health event", zap.Error(err))
		}
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if !cl.wants(ev.Dependency) {
			continue
		}
		if !h.enqueue(cl, "health", data) {
			// Slow consumer; cut it loose rather than stall the stream.
			h.drop(cl)
		}
	}
}

func (h *Handler) readLoop(cl *client) {
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg types.WSMessage
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			h.sendError(cl, "malformed message")
			continue
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage("received", msg.Type)
		}

		switch msg.Type {
		case "ping":
			h.sendEnvelope(cl, "pong", map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Unix(),
			})
		case "subscribe":
			cl.subscribe(msg.Dependencies)
			h.sendSnapshot(cl)
		case "snapshot":
			// Clients resync after missing events.
			h.sendSnapshot(cl)
		default:
			h.sendError(cl, "unknown message type")
		}
	}
}

func (h *Handler) writePump(cl *client) {
	defer cl.conn.Close()

	for {
		select {
		case msg := <-cl.send:
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(cl)
				return
			}
		case <-cl.done:
			// Best effort close frame before the connection goes away.
			_ = cl.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drop removes a client exactly once. The done channel stops the write
// pump, which closes the connection, which unblocks the read loop.
func (h *Handler) drop(cl *client) {
	cl.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, cl.id)
		h.mu.Unlock()

		close(cl.done)

		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
		if h.log != nil {
			h.log.Debug("Health stream client disconnected", zap.String("client", cl.id))
		}
	})
}

func (h *Handler) sendSnapshot(cl *client) {
	deps := make(map[string]types.Health)
	for _, name := range h.manager.Dependencies() {
		if !cl.wants(name) {
			continue
		}
		deps[name] = h.manager.Health(name)
	}

	h.sendEnvelope(cl, "snapshot", map[string]interface{}{
		"type":         "snapshot",
		"dependencies": deps,
		"timestamp":    time.Now().Unix(),
	})
}

func (h *Handler) sendError(cl *client, msg string) {
	h.sendEnvelope(cl, "error", map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) sendEnvelope(cl *client, msgType string, payload map[string]interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		if h.log != nil {
			h.log.Error("Failed to encode message", zap.Error(err))
		}
		return
	}
	h.enqueue(cl, msgType, data)
}

// enqueue offers a message to the client's write pump without blocking
func (h *Handler) enqueue(cl *client, msgType string, data []byte) bool {
	select {
	case cl.send <- data:
		if h.metrics != nil {
			h.metrics.RecordWSMessage("sent", msgType)
		}
		return true
	case <-cl.done:
		return false
	default:
		return false
	}
}
