package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}
	hub.register <- client

	hub.BroadcastJSON(map[string]string{"type": "watchlist"})
	select {
	case received := <-client.send:
		assert.JSONEq(t, `{"type":"watchlist"}`, string(received))
	case <-time.After(time.Second):
		t.Fatal("Client did not receive broadcast message in time")
	}

	hub.unregister <- client
	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel is closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("Client was not unregistered")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- slow
	hub.BroadcastJSON("x")

	select {
	case _, ok := <-slow.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Slow client was not dropped")
	}
}

func TestHub_CloseStopsBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Close()
	hub.Close()
	// Must not block once closed.
	hub.BroadcastJSON("late")
}

func TestServeWs(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// The registration races the first broadcast; repeat until one lands.
	received := make(chan map[string]any, 1)
	go func() {
		var msg map[string]any
		if _, data, err := conn.ReadMessage(); err == nil && json.Unmarshal(data, &msg) == nil {
			received <- msg
		}
	}()
	deadline := time.After(2 * time.Second)
	for {
		hub.BroadcastJSON(map[string]string{"type": "catalog"})
		select {
		case msg := <-received:
			assert.Equal(t, "catalog", msg["type"])
			return
		case <-deadline:
			t.Fatal("No message over the websocket")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func httpHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.ServeWs)
}
