package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"listings/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// UpgradeRequired rejects plain HTTP requests to the feed
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves the listings change feed
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		HandleWebSocket(c, hub)
	})
}

// HandleWebSocket registers c with the hub and pumps messages until either
// side closes
func HandleWebSocket(c *websocket.Conn, hub *Hub) {
	defer c.Close()

	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: c,
		Send: make(chan []byte, sendBuffer),
	}
	if !hub.RegisterConnection(conn) {
		return
	}
	defer hub.UnregisterConnection(conn)

	// No writer goroutine exists yet, so the greeting can go out directly
	hello, _ := json.Marshal(WSMessage{
		Type: TypeHello,
		Content: HelloMessage{
			ConnectionID: conn.ID,
			Connections:  hub.ConnectionCount(),
		},
		Timestamp: time.Now().UTC(),
	})
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	// Send is owned by the hub; replies from the read loop use their own channel
	replies := make(chan []byte, 8)
	done := make(chan struct{})
	go writePump(conn, replies, done)
	defer close(done)

	c.SetReadLimit(4096)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.LogDebug("WebSocket read error", "connection", conn.ID, "error", err)
			}
			return
		}

		if msg.Type == "ping" {
			pong, _ := json.Marshal(WSMessage{Type: TypePong, Timestamp: time.Now().UTC()})
			select {
			case replies <- pong:
			default:
			}
		}
	}
}

func writePump(conn *Connection, replies <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(messageType int, data []byte) error {
		_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.Conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case <-done:
			return
		case message, ok := <-conn.Send:
			if !ok {
				_ = write(websocket.CloseMessage, []byte{})
				return
			}
			if err := write(websocket.TextMessage, message); err != nil {
				utils.LogDebug("WebSocket write error", "connection", conn.ID, "error", err)
				return
			}
		case reply := <-replies:
			if err := write(websocket.TextMessage, reply); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
