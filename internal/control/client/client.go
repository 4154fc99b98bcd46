// Package client is the CLI-side half of the control protocol: dial the
// socket, write one command line, read one reply line.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dome-wm/dome/internal/control"
)

// defaultTimeout is used when the caller does not provide a context
// deadline, matching the client-side 2s IPC timeout.
const defaultTimeout = 2 * time.Second

// Client talks to the running domed daemon over its control socket.
type Client struct {
	socketPath string
}

// New creates a client that connects to the provided socket path. When
// path is empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Send writes one command line and returns the daemon's one-line reply
// verbatim ("OK" or "ERR: <msg>").
func (c *Client) Send(ctx context.Context, line string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	conn, err := dial(ctx, c.socketPath)
	if err != nil {
		return "", fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := fmt.Fprintln(conn, line); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(reply, "\r\n"), nil
}

// Do sends line and turns an "ERR: <msg>" reply into a Go error.
func (c *Client) Do(ctx context.Context, line string) error {
	reply, err := c.Send(ctx, line)
	if err != nil {
		return err
	}
	if strings.HasPrefix(reply, "ERR:") {
		return fmt.Errorf("%s", strings.TrimSpace(strings.TrimPrefix(reply, "ERR:")))
	}
	if reply != "OK" {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	return dialPlatform(ctx, path)
}
