package services

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single websocket write so one stalled client cannot
// hold the hub lock-step with the frame loop.
const writeTimeout = 5 * time.Second

type WSClient struct {
	Username string
	Conn     *websocket.Conn

	mu sync.Mutex // gorilla allows at most one concurrent writer
}

// WriteMessage serializes all writes to the connection: hub broadcasts and
// the keepalive ping run on different goroutines.
func (c *WSClient) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

// RealtimeHub fans annotated frames and alert events out to the dashboard
// connections of each user.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.Username] == nil {
		h.clients[c.Username] = make(map[*WSClient]struct{})
	}
	h.clients[c.Username][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.Username]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.Username)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// BroadcastFrame pushes one annotated frame plus the events seen in it.
func (h *RealtimeHub) BroadcastFrame(username string, frame []byte, events []string) {
	h.broadcast(username, map[string]any{
		"kind":   "frame",
		"image":  base64.StdEncoding.EncodeToString(frame),
		"events": events,
	})
}

// BroadcastAlert announces an admitted alert.
func (h *RealtimeHub) BroadcastAlert(username string, payload any) {
	h.broadcast(username, map[string]any{
		"kind":  "alert.created",
		"alert": payload,
	})
}

// BroadcastStatus reports session lifecycle changes (started, finished,
// source unreachable, ...).
func (h *RealtimeHub) BroadcastStatus(username, sessionID, status string) {
	h.broadcast(username, map[string]any{
		"kind":       "session.status",
		"session_id": sessionID,
		"status":     status,
	})
}

func (h *RealtimeHub) broadcast(username string, payload any) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[username] {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
}
