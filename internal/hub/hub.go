// Package hub provides connection management for WebSocket observers.
package hub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket connection. A connection may
// follow one thread for turn events; thread-list events reach everyone.
type Connection struct {
	ID       string
	ThreadID string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub manages all WebSocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Threads maps thread_id to set of connection IDs
	threads map[string]map[string]bool

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		threads:     make(map[string]map[string]bool),
	}
}

// NewConnection creates a connection and registers it with the hub.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	return conn
}

// Unregister removes a connection from the hub and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	h.detachLocked(conn)
	close(conn.Send)
}

// FollowThread points a connection at a thread, detaching it from any thread
// it followed before.
func (h *Hub) FollowThread(conn *Connection, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(conn)
	conn.ThreadID = threadID
	if h.threads[threadID] == nil {
		h.threads[threadID] = make(map[string]bool)
	}
	h.threads[threadID][conn.ID] = true
}

func (h *Hub) detachLocked(conn *Connection) {
	if conn.ThreadID == "" || h.threads[conn.ThreadID] == nil {
		return
	}
	delete(h.threads[conn.ThreadID], conn.ID)
	if len(h.threads[conn.ThreadID]) == 0 {
		delete(h.threads, conn.ThreadID)
	}
	conn.ThreadID = ""
}

// BroadcastThread sends a JSON event to every connection following threadID.
func (h *Hub) BroadcastThread(threadID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: failed to marshal hub event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.threads[threadID] {
		h.sendLocked(connID, data)
	}
}

// BroadcastAll sends a JSON event to every connection.
func (h *Hub) BroadcastAll(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: failed to marshal hub event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.connections {
		h.sendLocked(connID, data)
	}
}

func (h *Hub) sendLocked(connID string, data []byte) {
	conn, ok := h.connections[connID]
	if !ok {
		return
	}
	select {
	case conn.Send <- data:
	default:
		// Buffer full; the observer is lagging hopelessly, drop the event.
		log.Printf("WARN: connection %s buffer full, dropping event", connID)
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
