package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Connection is one subscriber of the listings feed
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub tracks feed subscribers in this process and fans broadcasts out to them
type Hub struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	broadcast   chan []byte
	mu          sync.RWMutex
	done        chan struct{}
	closeOnce   sync.Once
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan []byte, 64),
		done:        make(chan struct{}),
	}
}

// Close stops Run and disconnects every subscriber
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// RegisterConnection schedules a connection to be added to the hub.
// It returns false once the hub is closed.
func (h *Hub) RegisterConnection(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterConnection schedules a connection to be removed from the hub
func (h *Hub) UnregisterConnection(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast queues data for every subscriber
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// BroadcastMessage encodes msg and queues it for every subscriber
func (h *Hub) BroadcastMessage(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Run is the hub event loop. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, conn := range h.connections {
				close(conn.Send)
				delete(h.connections, id)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.remove(conn.ID)

		case data := <-h.broadcast:
			h.fanOut(data)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.connections[id]; ok {
		delete(h.connections, id)
		close(conn.Send)
	}
}

// fanOut delivers data to every subscriber. Subscribers whose buffer is full
// are disconnected.
func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		select {
		case conn.Send <- data:
		default:
			close(conn.Send)
			delete(h.connections, id)
		}
	}
}

// ConnectionCount returns the number of subscribers in this process
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
