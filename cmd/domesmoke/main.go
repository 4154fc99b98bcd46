// Command domesmoke runs a fixed script of backend events and commands
// against a fully wired, in-memory World — no real platform backend, no
// control socket — and prints the resulting layout. It exists to catch
// gross regressions in the command/layout pipeline without a running
// window manager to test against.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/dome"
	"github.com/dome-wm/dome/internal/dome/testbackend"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/metrics"
	"github.com/dome-wm/dome/internal/tree"
	"github.com/dome-wm/dome/internal/util"
)

// step is one line of the script: either a backend event to emit or a
// command line to submit, never both.
type step struct {
	event dome.BackendEvent
	line  string
}

func script() []step {
	return []step{
		{event: dome.WindowCreated{ID: "win-1"}},
		{event: dome.WindowCreated{ID: "win-2"}},
		{event: dome.WindowCreated{ID: "win-3"}},
		{line: "focus left"},
		{line: "toggle float"},
		{line: "move right"},
		{line: "toggle float"},
		{line: "toggle direction"},
		{line: "focus parent"},
		{line: "toggle layout"},
	}
}

func main() {
	logLevel := pflag.String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	pflag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	backend := testbackend.New([]dome.MonitorInfo{
		{ID: "smoke-0", WorkArea: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
	})
	decorator := testbackend.NewDecorator()
	world := dome.NewWorld(&config.Config{AutomaticTiling: true}, nil)
	collector := metrics.NewCollector(false)
	commands := make(chan dome.IpcRequest)
	configEv := make(chan dome.ConfigEvent, 1)

	disp := dome.NewDispatcher(world, backend, decorator, logger, dome.PlatformMacOS, collector, commands, configEv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- disp.Run(ctx) }()

	for _, s := range script() {
		switch {
		case s.event != nil:
			fmt.Printf("event: %#v\n", s.event)
			backend.Emit(s.event)
			time.Sleep(5 * time.Millisecond)
		case s.line != "":
			fmt.Printf("command: %s\n", s.line)
			reply := make(chan string, 1)
			select {
			case commands <- dome.IpcRequest{Line: s.line, Reply: reply}:
			case <-time.After(2 * time.Second):
				exitErr(fmt.Errorf("timed out submitting %q", s.line))
			}
			select {
			case resp := <-reply:
				fmt.Printf("  -> %s\n", resp)
			case <-time.After(2 * time.Second):
				exitErr(fmt.Errorf("timed out waiting for reply to %q", s.line))
			}
		}
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			exitErr(fmt.Errorf("dispatcher exited: %w", err))
		}
	case <-time.After(2 * time.Second):
		exitErr(fmt.Errorf("dispatcher did not stop after cancel"))
	}

	fmt.Println("\n=== Final Geometry ===")
	snapshot := make(map[tree.WindowId]geometry.Rect, len(backend.Geometry))
	for id, rect := range backend.Geometry {
		if backend.Visible[id] {
			snapshot[id] = rect
		}
	}
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		exitErr(fmt.Errorf("marshal snapshot: %w", err))
	}
	fmt.Println(string(out))
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
