package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubClient wires a real server-side websocket connection into the hub, the
// way the realtime controller does, and drains the client side.
func hubClient(t *testing.T, hub *RealtimeHub, username string) *WSClient {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	dialer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { dialer.Close() })
	go func() {
		for {
			if _, _, err := dialer.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cl := &WSClient{Username: username, Conn: <-connCh}
	hub.Register(cl)
	return cl
}

// Two goroutines broadcasting frames plus a pinger on the same connection:
// every write must be serialized or gorilla panics with "concurrent write to
// websocket connection".
func TestRealtimeHubConcurrentWrites(t *testing.T) {
	hub := NewRealtimeHub()
	cl := hubClient(t, hub, "alice")
	defer hub.Unregister(cl)

	frame := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				hub.BroadcastFrame("alice", frame, []string{"Fire Detected"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			_ = cl.WriteMessage(websocket.PingMessage, nil)
		}
	}()
	wg.Wait()
}

func TestRealtimeHubRegisterUnregisterDuringBroadcast(t *testing.T) {
	hub := NewRealtimeHub()
	cl := hubClient(t, hub, "alice")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for j := 0; j < 200; j++ {
			hub.BroadcastAlert("alice", map[string]any{"alert_type": "Person Detected"})
		}
	}()

	other := hubClient(t, hub, "alice")
	hub.Unregister(cl)
	hub.Unregister(other)
	<-done

	// all connections gone: broadcast is a no-op, not a panic
	hub.BroadcastStatus("alice", "sess-1", string(StatusFinished))
}

func TestRealtimeHubIsolatesUsers(t *testing.T) {
	hub := NewRealtimeHub()
	assert.NotPanics(t, func() {
		hub.BroadcastFrame("nobody-connected", []byte{0xFF, 0xD8}, nil)
	})
}
