package websocket

import (
	"time"

	"listings/models"
)

// Message types sent to feed subscribers
const (
	TypeHello           = "hello"
	TypePong            = "pong"
	TypePropertyCreated = "property.created"
	TypePropertyUpdated = "property.updated"
	TypePropertyDeleted = "property.deleted"
)

// WSMessage is the envelope for every frame on the listings feed
type WSMessage struct {
	Type       string           `json:"type"`
	PropertyID int64            `json:"property_id,omitempty"`
	Property   *models.Property `json:"property,omitempty"`
	Content    interface{}      `json:"content,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// HelloMessage greets a new subscriber
type HelloMessage struct {
	ConnectionID string `json:"connection_id"`
	Connections  int    `json:"connections"`
}

// eventType maps a service action onto a feed message type
func eventType(action string) (string, bool) {
	switch action {
	case "created":
		return TypePropertyCreated, true
	case "updated":
		return TypePropertyUpdated, true
	case "deleted":
		return TypePropertyDeleted, true
	}
	return "", false
}
