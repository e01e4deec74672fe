package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ejiview/internal/infrastructure"
	"ejiview/pkg/contracts/events"
)

// TypeConnection is sent to a client right after it registers
const TypeConnection = string(events.MessageTypeConnection)

// broadcastQueueSize bounds pending broadcasts before new ones are dropped
const broadcastQueueSize = 64

// Message is the envelope of every server-to-client frame
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and fans broadcasts out to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	stats   *Stats
	metrics *infrastructure.DomainMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.DomainMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		stats:      NewStats(),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and closes every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shut down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.stats.RecordConnection()
	h.metrics.RecordWebSocketChange(ctx, 1)

	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	hello, err := encode(Message{
		Type: TypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		TraceID: client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "Client buffer full, connection message skipped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	connected := time.Since(client.connectedAt)
	h.stats.RecordDisconnection(connected)
	h.metrics.RecordWebSocketChange(ctx, -1)

	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", connected))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered, slow := 0, 0
	for _, client := range clients {
		select {
		case client.send <- message:
			delivered++
		default:
			slow++
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			h.removeClient(client)
		}
	}

	h.stats.RecordBroadcast(len(message), delivered, slow)
	h.logger.Debug("Broadcast delivered",
		slog.Int("delivered", delivered),
		slog.Int("slow_clients", slow),
		slog.Int("message_size", len(message)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		h.stats.RecordDisconnection(time.Since(client.connectedAt))
		h.metrics.RecordWebSocketChange(context.Background(), -1)
	}
}

// Broadcast sends a typed event to every client. A trace_id entry in a map
// payload is copied onto the envelope. When the queue is full the event is
// dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	traceID := ""
	if m, ok := data.(map[string]interface{}); ok {
		traceID, _ = m["trace_id"].(string)
	}
	h.BroadcastWithTrace(messageType, data, traceID)
}

// BroadcastWithTrace is Broadcast with an explicit trace ID
func (h *Hub) BroadcastWithTrace(messageType string, data interface{}, traceID string) {
	ctx := context.Background()
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}

	payload, err := encode(Message{Type: messageType, Data: data, TraceID: traceID})
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.stats.RecordDroppedMessage()
		h.logger.WarnContext(ctx, "Broadcast queue full, message dropped",
			slog.String("message_type", messageType))
	}
}

// Register adds a client. It returns without effect once the hub stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters
func (h *Hub) Stats() map[string]interface{} {
	snap := h.stats.Snapshot()
	snap["queued"] = len(h.broadcast)
	return snap
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}
