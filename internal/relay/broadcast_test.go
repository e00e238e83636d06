package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and returns
// the server-side connection. The caller must close both the server and the
// returned connection.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	// Only the server-side conn is needed.
	_ = clientConn.Close()

	select {
	case serverConn := <-connCh:
		return srv, serverConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil
	}
}

func TestAddClient_MaxConnections(t *testing.T) {
	const maxConns = 2
	b := NewBroadcaster(NewStore(), maxConns, nil)
	defer b.Close()

	var clients []*client
	for i := 0; i < maxConns; i++ {
		srv, conn := dialTestWS(t)
		defer srv.Close()

		c, err := b.AddClient(conn)
		if err != nil {
			t.Fatalf("AddClient[%d]: unexpected error: %v", i, err)
		}
		clients = append(clients, c)
	}

	srv, conn := dialTestWS(t)
	defer srv.Close()
	if _, err := b.AddClient(conn); !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("expected ErrTooManyConnections, got %v", err)
	}

	b.RemoveClient(clients[0])
	srv2, conn2 := dialTestWS(t)
	defer srv2.Close()
	if _, err := b.AddClient(conn2); err != nil {
		t.Fatalf("AddClient after removal: unexpected error: %v", err)
	}
}

func TestRemoveClient_Idempotent(t *testing.T) {
	srv, conn := dialTestWS(t)
	defer srv.Close()

	b := NewBroadcaster(NewStore(), 0, nil)
	c, err := b.AddClient(conn)
	if err != nil {
		t.Fatal(err)
	}
	b.RemoveClient(c)
	b.RemoveClient(c) // must not panic on double close
	if got := b.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

func TestWritePump_RemovesClientOnWriteError(t *testing.T) {
	srv, serverConn := dialTestWS(t)
	defer srv.Close()

	b := NewBroadcaster(NewStore(), 0, nil)

	// Build a client directly so we control when writePump starts.
	c := &client{conn: serverConn, b: b, send: make(chan []byte, 64)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	serverConn.Close()
	c.send <- []byte(`{"type":"test"}`)
	go c.writePump()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client not removed after write error; ClientCount = %d", b.ClientCount())
}

func TestPublish_UpdatesStoreAndQueuesMessage(t *testing.T) {
	store := NewStore()
	b := NewBroadcaster(store, 0, nil)

	// Client with no write pump so queued messages stay observable.
	c := &client{send: make(chan []byte, 4)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	rec := event.Record{SessionID: "s1", Event: "Stop", Status: event.StatusIdle, PID: 9}
	b.Publish(rec)

	if got, ok := store.Get("s1"); !ok || got.Status != event.StatusIdle {
		t.Errorf("store.Get(s1) = %+v, %v", got, ok)
	}

	select {
	case data := <-c.send:
		var msg struct {
			Type    MessageType  `json:"type"`
			Payload event.Record `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != MsgRecord || msg.Payload.SessionID != "s1" {
			t.Errorf("message = %+v", msg)
		}
	default:
		t.Fatal("no message queued")
	}
}

func TestPublish_DisconnectsSlowClient(t *testing.T) {
	b := NewBroadcaster(NewStore(), 0, nil)
	c := &client{send: make(chan []byte)} // unbuffered, never drained
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	b.Publish(event.Record{SessionID: "s"})

	if got := b.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want slow client removed", got)
	}
}
