//go:build windows

package client

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// windowsPipeName mirrors the server's well-known pipe name; path is
// ignored since the pipe namespace is global rather than filesystem-rooted.
const windowsPipeName = `\\.\pipe\dome`

func dialPlatform(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, windowsPipeName)
}
