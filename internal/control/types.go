// Package control implements the IPC server: a per-user local stream
// endpoint that accepts one line-delimited command at a time and replies
// with a single "OK" or "ERR: <msg>" line before closing the connection.
package control

import (
	"errors"
	"os"
	"path/filepath"
)

// SocketFileName is the filename of the control socket within the
// runtime dir.
const SocketFileName = "dome.sock"

// DefaultSocketPath returns the expected location of the control socket:
// $XDG_RUNTIME_DIR/dome.sock, or $DOME_CONTROL_SOCKET if set.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("DOME_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, SocketFileName), nil
}
