//go:build !windows

package control

import (
	"net"
	"os"
)

// listen opens the control socket as a Unix domain socket, restricted to
// the current user.
func listen(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}
