package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/clawdgotchi/hookbridge/internal/event"
	"github.com/clawdgotchi/hookbridge/internal/logging"
)

const (
	// connIdleTimeout bounds how long a connection may sit without sending.
	connIdleTimeout = 5 * time.Second
	maxLineBytes    = 16 << 20
)

// Handler receives every record decoded from the socket.
type Handler func(event.Record)

// Listener is the receiving end of the hook socket. It accepts any number of
// connections and reads newline-delimited records from each.
type Listener struct {
	socketPath string
	mode       os.FileMode
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
}

func NewListener(socketPath string, mode os.FileMode, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Listener{
		socketPath: socketPath,
		mode:       mode,
		logger:     logger,
	}
}

// Listen removes a stale socket file and binds a fresh one.
func (l *Listener) Listen() error {
	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	if l.mode != 0 {
		if err := os.Chmod(l.socketPath, l.mode); err != nil {
			listener.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
	}
	l.listener = listener
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is shut
// down. It returns nil in both cases.
func (l *Listener) Serve(ctx context.Context, handle Handler) error {
	if l.listener == nil {
		return errors.New("listener not initialized")
	}

	stop := context.AfterFunc(ctx, func() { _ = l.listener.Close() })
	defer stop()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		l.wg.Add(1)
		go l.handleConn(conn, handle)
	}
}

// Shutdown stops accepting, waits for open connections and removes the
// socket file.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.listener != nil {
		_ = l.listener.Close()
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Listener) handleConn(conn net.Conn, handle Handler) {
	defer l.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(connIdleTimeout))
		if !scanner.Scan() {
			break
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec event.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			l.logger.Warn("failed to parse hook record", "error", err, "line", truncate(line, 200))
			continue
		}
		handle(rec)
	}
	if err := scanner.Err(); err != nil {
		l.logger.Debug("connection closed", "error", err)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
