package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

func newClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func testState() *engine.GameState {
	return &engine.GameState{
		Grid: engine.Grid{
			{2, 0, 0, 0},
			{0, 4, 0, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 8},
		},
		Size:    4,
		Score:   12,
		MaxTile: 8,
		MoveHistory: []engine.MoveHistoryEntry{
			{Action: "up", Changed: true, MoveNumber: 1},
			{Action: "left", Changed: true, ScoreGained: 8, Score: 12, MoveNumber: 2},
		},
	}
}

// waitForClients polls until the running hub reports n clients
func waitForClients(t *testing.T, hub *Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients in session %s, got %d", n, sessionID, hub.ClientCount(sessionID))
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil || hub.counts == nil {
		t.Error("Hub channels not initialised")
	}
	if hub.log == nil {
		t.Error("Hub logger should default to a no-op logger")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// a second unregister must not close the channel twice
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "multi-client-session"

	client1 := newClient(hub, sessionID)
	client2 := newClient(hub, sessionID)

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.sessions[sessionID]))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "broadcast-test"

	client := newClient(hub, sessionID)
	other := newClient(hub, "other-session")
	hub.registerClient(client)
	hub.registerClient(other)

	hub.BroadcastToSession(sessionID, testState())

	// the hub goroutine is not running, so deliver the queued message by hand
	select {
	case msg := <-hub.broadcast:
		hub.broadcastMessage(msg)
	default:
		t.Fatal("BroadcastToSession did not queue a message")
	}

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %s", EventStateUpdate, message.Event)
		}
		if message.GameState.Score != 12 || message.GameState.Grid[3][3] != 8 {
			t.Error("GameState not correctly transmitted")
		}
		if message.LastMove == nil || message.LastMove.Action != "left" || message.LastMove.ScoreGained != 8 {
			t.Errorf("Expected last move 'left' (+8), got %+v", message.LastMove)
		}
	default:
		t.Error("No message delivered to client")
	}

	select {
	case <-other.send:
		t.Error("client of another session received the broadcast")
	default:
	}
}

func TestHubBroadcastWithoutHistory(t *testing.T) {
	hub := NewHub(nil)
	hub.BroadcastToSession("s", &engine.GameState{Grid: engine.Grid{{0, 2}, {0, 0}}})

	msg := <-hub.broadcast
	if msg.LastMove != nil {
		t.Errorf("expected no last move, got %+v", msg.LastMove)
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(nil)

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" {
			t.Errorf("Expected sessionID 'event-test', got %s", message.SessionID)
		}
		if message.Event != "custom-event" {
			t.Errorf("Expected event 'custom-event', got %s", message.Event)
		}
		if message.Data != "test-data" {
			t.Errorf("Expected data 'test-data', got %v", message.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.BroadcastEvent("s", "tick", i)
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("expected a full queue of %d, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestHubSlowClientDropped(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "s", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: "tick"})

	if _, exists := hub.sessions["s"]; exists {
		t.Error("a client that cannot receive should be unregistered")
	}
}

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketUpgrade(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(startServer(t, hub)+"?sessionId=ws-test", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitForClients(t, hub, "ws-test", 1)

	conn.Close()

	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketMessageReceive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(startServer(t, hub)+"?sessionId=msg-test", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, "msg-test", 1)

	hub.BroadcastToSession("msg-test", testState())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(messageData, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.GameState.Grid[1][1] != 4 || message.GameState.Score != 12 {
		t.Error("GameState not correctly received")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn, _, err := websocket.DefaultDialer.Dial(startServer(t, hub)+"?sessionId=bye", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, "bye", 1)

	cancel()
	<-stopped

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed after shutdown")
	}
	if hub.ClientCount("bye") != 0 {
		t.Error("ClientCount after shutdown should be 0")
	}
}
