//go:build windows

package control

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// windowsPipeName is the well-known pipe name for the control endpoint,
// matching the Unix variant's fixed socket filename.
const windowsPipeName = `\\.\pipe\dome`

// listen opens the control endpoint as a named pipe; path is ignored on
// Windows, since the pipe namespace is global rather than filesystem-rooted.
func listen(path string) (net.Listener, error) {
	return winio.ListenPipe(windowsPipeName, &winio.PipeConfig{})
}
