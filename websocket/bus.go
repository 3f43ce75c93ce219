package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"listings/models"
	"listings/utils"
)

// DefaultChannel is the Redis channel property events are published on
const DefaultChannel = "property_listings:events"

// Bus relays property events between server workers over Redis pub/sub and
// hands every received event to the local hub.
type Bus struct {
	rdb     redis.UniversalClient
	hub     *Hub
	channel string
}

// NewBus creates a Bus. With a nil client events only reach the local hub.
func NewBus(rdb redis.UniversalClient, hub *Hub) *Bus {
	return &Bus{rdb: rdb, hub: hub, channel: DefaultChannel}
}

// Publish sends msg to every worker's subscribers
func (b *Bus) Publish(ctx context.Context, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if b.rdb == nil {
		b.hub.Broadcast(data)
		return nil
	}
	return b.rdb.Publish(ctx, b.channel, data).Err()
}

// PropertyChanged publishes a property write as a feed event
func (b *Bus) PropertyChanged(ctx context.Context, action string, id int64, p *models.Property) {
	msgType, ok := eventType(action)
	if !ok {
		return
	}
	msg := WSMessage{
		Type:       msgType,
		PropertyID: id,
		Property:   p,
		Timestamp:  time.Now().UTC(),
	}
	if err := b.Publish(ctx, msg); err != nil {
		utils.LogWarn("Failed to publish property event", "type", msgType, "id", id, "error", err)
	}
}

// Run subscribes to the channel and forwards messages to the hub until ctx
// is done. ready, when non-nil, is closed once the subscription is active.
func (b *Bus) Run(ctx context.Context, ready chan<- struct{}) error {
	if b.rdb == nil {
		if ready != nil {
			close(ready)
		}
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	// Receive blocks until the subscription is confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
