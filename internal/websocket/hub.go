// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/threatlens/internal/logging"
	"github.com/tomtom215/threatlens/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication. The domain frames
// (threat_event, summary_update, module_status, connection_state) are named
// by their producers and passed through BroadcastJSON.
const (
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeSnapshot = "snapshot"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HubConfig configures hub buffering.
type HubConfig struct {
	BroadcastBuffer int // Pending broadcasts before new ones are dropped
	ClientBuffer    int // Pending frames per client before it is disconnected
}

// DefaultHubConfig returns sensible defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BroadcastBuffer: 256,
		ClientBuffer:    256,
	}
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan Message
	registerCh   chan *Client
	unregisterCh chan *Client
	clientBuffer int
	mu           sync.RWMutex

	// done is closed when a run of the hub loop exits and replaced when the
	// supervisor restarts it.
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub(cfg HubConfig) *Hub {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = DefaultHubConfig().BroadcastBuffer
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultHubConfig().ClientBuffer
	}
	return &Hub{
		broadcast:    make(chan Message, cfg.BroadcastBuffer),
		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		clients:      make(map[*Client]bool),
		clientBuffer: cfg.ClientBuffer,
		done:         make(chan struct{}),
	}
}

// Register hands client to the hub loop. It reports false when the hub has
// stopped; the caller then owns the connection.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.registerCh <- client:
		return true
	case <-h.stopped():
		return false
	}
}

// Unregister removes client from the hub. It returns immediately when the
// hub has stopped, since shutdown already closed every client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregisterCh <- client:
	case <-h.stopped():
	}
}

func (h *Hub) stopped() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "websocket-hub"
}

// RunWithContext runs the hub until ctx is done, then closes every client.
//
// Lifecycle events take priority over broadcasts so a client registered
// before a broadcast is queued always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	select {
	case <-h.done:
		h.done = make(chan struct{})
	default:
	}
	done := h.done
	h.mu.Unlock()
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.registerCh:
			h.addClient(client)
			continue
		case client := <-h.unregisterCh:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.registerCh:
			h.addClient(client)
		case client := <-h.unregisterCh:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("client_id", client.connID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Dec()
		logging.Info().
			Str("client_id", client.connID).
			Int("total_clients", total).
			Msg("websocket client disconnected")
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients in registration order. Callers hold mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers to every client in registration order. A
// client whose buffer is full is disconnected; it can reconnect and reload
// the snapshot.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		logging.Warn().Str("client_id", client.connID).Msg("websocket client too slow, disconnected")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
}

// BroadcastJSON queues a typed frame for every connected client. It never
// blocks; when the broadcast buffer is full the frame is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
