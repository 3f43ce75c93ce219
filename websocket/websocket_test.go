package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	fasthttpws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings/models"
)

func newTestConnection() *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 4),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "channel closed")
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub.connections)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := startHub(t)
	conn := newTestConnection()

	require.True(t, hub.RegisterConnection(conn))
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.UnregisterConnection(conn)
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-conn.Send
	assert.False(t, ok, "send channel is closed on unregister")

	// A second unregister is a no-op
	hub.UnregisterConnection(conn)
}

func TestHubBroadcastReachesEveryConnection(t *testing.T) {
	hub := startHub(t)
	first, second := newTestConnection(), newTestConnection()
	require.True(t, hub.RegisterConnection(first))
	require.True(t, hub.RegisterConnection(second))

	require.NoError(t, hub.BroadcastMessage(WSMessage{Type: TypePropertyDeleted, PropertyID: 9}))

	for _, conn := range []*Connection{first, second} {
		var msg WSMessage
		require.NoError(t, json.Unmarshal(receive(t, conn.Send), &msg))
		assert.Equal(t, TypePropertyDeleted, msg.Type)
		assert.Equal(t, int64(9), msg.PropertyID)
	}
}

func TestHubDropsSlowConsumers(t *testing.T) {
	hub := startHub(t)
	slow := &Connection{ID: "slow", Send: make(chan []byte)}
	require.True(t, hub.RegisterConnection(slow))

	hub.Broadcast([]byte(`{"type":"property.created"}`))

	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-slow.Send
	assert.False(t, ok)
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	conn := newTestConnection()
	require.True(t, hub.RegisterConnection(conn))

	hub.Close()
	hub.Close()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	_, ok := <-conn.Send
	assert.False(t, ok)
	assert.False(t, hub.RegisterConnection(newTestConnection()))
}

func TestEventType(t *testing.T) {
	tests := []struct {
		action   string
		expected string
		ok       bool
	}{
		{"created", TypePropertyCreated, true},
		{"updated", TypePropertyUpdated, true},
		{"deleted", TypePropertyDeleted, true},
		{"renamed", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			got, ok := eventType(tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBusRelaysThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := startHub(t)
	conn := newTestConnection()
	require.True(t, hub.RegisterConnection(conn))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(rdb, hub)
	ready := make(chan struct{})
	go func() { _ = bus.Run(ctx, ready) }()
	<-ready

	p := &models.Property{ID: 4, Title: "Lake Cabin", Price: 210000, Location: "Tahoe, CA"}
	bus.PropertyChanged(ctx, "created", p.ID, p)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(receive(t, conn.Send), &msg))
	assert.Equal(t, TypePropertyCreated, msg.Type)
	assert.Equal(t, int64(4), msg.PropertyID)
	require.NotNil(t, msg.Property)
	assert.Equal(t, "Lake Cabin", msg.Property.Title)
}

func TestBusWithoutRedisBroadcastsLocally(t *testing.T) {
	hub := startHub(t)
	conn := newTestConnection()
	require.True(t, hub.RegisterConnection(conn))

	bus := NewBus(nil, hub)
	bus.PropertyChanged(context.Background(), "deleted", 3, nil)
	bus.PropertyChanged(context.Background(), "unknown", 3, nil)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(receive(t, conn.Send), &msg))
	assert.Equal(t, TypePropertyDeleted, msg.Type)

	select {
	case extra := <-conn.Send:
		t.Fatalf("unexpected message %s", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandlerServesFeed(t *testing.T) {
	hub := startHub(t)

	app := fiber.New()
	app.Use("/ws", UpgradeRequired)
	app.Get("/ws/properties", Handler(hub))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	url := fmt.Sprintf("ws://%s/ws/properties", ln.Addr().String())
	client, _, err := fasthttpws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello WSMessage
	require.NoError(t, client.ReadJSON(&hello))
	assert.Equal(t, TypeHello, hello.Type)

	require.NoError(t, client.WriteJSON(WSMessage{Type: "ping"}))
	var pong WSMessage
	require.NoError(t, client.ReadJSON(&pong))
	assert.Equal(t, TypePong, pong.Type)

	require.NoError(t, hub.BroadcastMessage(WSMessage{Type: TypePropertyUpdated, PropertyID: 1}))
	var event WSMessage
	require.NoError(t, client.ReadJSON(&event))
	assert.Equal(t, TypePropertyUpdated, event.Type)
	assert.Equal(t, int64(1), event.PropertyID)
}

func TestUpgradeRequired(t *testing.T) {
	app := fiber.New()
	app.Use("/ws", UpgradeRequired)
	app.Get("/ws/properties", Handler(NewHub()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/properties", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func BenchmarkHubBroadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	for i := 0; i < 100; i++ {
		conn := &Connection{ID: uuid.New().String(), Send: make(chan []byte, b.N+1)}
		hub.RegisterConnection(conn)
	}

	data := []byte(`{"type":"property.updated","property_id":1}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.fanOut(data)
	}
}
