package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

// DefaultSendTimeout bounds connect plus write for one record.
const DefaultSendTimeout = 2 * time.Second

// Client delivers records to the companion app's Unix socket. One call to
// Send opens one connection, writes one line and closes it.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

func (c *Client) SocketPath() string { return c.socketPath }

// Send writes rec as a single newline-terminated JSON line. It never
// retries; the caller decides what a failure means.
func (c *Client) Send(ctx context.Context, rec event.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
