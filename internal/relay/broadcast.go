package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clawdgotchi/hookbridge/internal/event"
	"github.com/clawdgotchi/hookbridge/internal/logging"
)

// ErrTooManyConnections is returned by AddClient when the limit is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const writeTimeout = 10 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster relays every record the listener receives to the connected
// WebSocket clients and keeps the latest record per session for snapshots.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *Store
	maxConns int // 0 means unlimited
	logger   *slog.Logger
}

func NewBroadcaster(store *Store, maxConns int, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		maxConns: maxConns,
		logger:   logger,
	}
}

// AddClient registers conn and queues a snapshot of known sessions for it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	data, err := json.Marshal(Message{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Sessions: b.store.GetAll()},
	})
	if err != nil {
		b.logger.Error("snapshot marshal failed", "error", err)
		return c, nil
	}
	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Publish records rec as its session's latest state and relays it.
func (b *Broadcaster) Publish(rec event.Record) {
	b.store.Update(rec)
	b.broadcast(Message{Type: MsgRecord, Payload: rec})
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("broadcast marshal failed", "error", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if !b.trySend(c, data) {
			b.logger.Warn("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

// trySend queues data unless the client's buffer is full or it was removed
// concurrently.
func (b *Broadcaster) trySend(c *client, data []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.clients[c] {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
}

// PruneLoop drops ended sessions older than retention every interval until
// ctx is done.
func (b *Broadcaster) PruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := b.store.Prune(now.Add(-retention)); n > 0 {
				b.logger.Debug("pruned ended sessions", "count", n)
			}
		}
	}
}
