package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/mosaicworks/blockboard/internal/board"
)

const clientBufferSize = 16

// Delivery reports the outcome of one broadcast: how many registered
// connections accepted the payload and how many were skipped because their
// transport was not ready.
type Delivery struct {
	Delivered int
	Skipped   int
}

// Hub is the process-wide registry of live client connections. Every event
// is serialized once and offered to every registered client; a client whose
// send buffer is full is skipped for that event, never queued behind.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub constructs an empty registry.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a live connection to the registry.
func (h *Hub) Register(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client registered", zap.Int("clients", count))
}

// Unregister removes a connection and signals its writer to stop. Safe to
// call more than once for the same client.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()
	if present {
		client.stop()
		h.logger.Debug("client unregistered", zap.Int("clients", count))
	}
}

// Clients reports the current registry size.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast serializes the event once and offers the bytes to every client
// registered at the moment of the call. Each send is independently guarded:
// one stalled or dead connection never blocks delivery to the rest.
func (h *Hub) Broadcast(event board.Event) (Delivery, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Delivery{}, err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	report := Delivery{}
	for _, client := range targets {
		if client.deliver(payload) {
			report.Delivered++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

// Publish implements board.Publisher. Broadcast outcomes are logged and
// otherwise dropped; the triggering mutation never observes them.
func (h *Hub) Publish(event board.Event) {
	report, err := h.Broadcast(event)
	if err != nil {
		h.logger.Error("event broadcast failed",
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
		return
	}
	h.logger.Debug("event broadcast",
		zap.String("kind", string(event.Kind)),
		zap.Int("delivered", report.Delivered),
		zap.Int("skipped", report.Skipped))
}

// Close unregisters every client and stops their writers.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	for _, client := range clients {
		client.stop()
	}
}
