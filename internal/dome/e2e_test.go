package dome_test

import (
	"context"
	"testing"
	"time"

	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/dome"
	"github.com/dome-wm/dome/internal/dome/testbackend"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/metrics"
	"github.com/dome-wm/dome/internal/tree"
	"github.com/dome-wm/dome/internal/util"
)

// TestEndToEndScriptedSequence drives a fully wired World/Dispatcher pair
// through a fixed script of backend events and commands, the same shape
// as a scripted operation sequence asserted against a final layout: two
// windows admitted, one toggled floating and back, a directional focus
// change, and a layout toggle, then the resulting backend geometry is checked.
func TestEndToEndScriptedSequence(t *testing.T) {
	backend := testbackend.New([]dome.MonitorInfo{
		{ID: "mon-0", WorkArea: geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}},
	})
	decorator := testbackend.NewDecorator()
	world := dome.NewWorld(&config.Config{AutomaticTiling: true}, nil)
	collector := metrics.NewCollector(false)
	commands := make(chan dome.IpcRequest)
	configEv := make(chan dome.ConfigEvent, 1)
	logger := util.NewLoggerWithWriter(util.LevelError, discard{})

	disp := dome.NewDispatcher(world, backend, decorator, logger, dome.PlatformMacOS, collector, commands, configEv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- disp.Run(ctx) }()

	send := func(ev dome.BackendEvent) { backend.Emit(ev) }
	sendCmd := func(line string) string {
		reply := make(chan string, 1)
		select {
		case commands <- dome.IpcRequest{Line: line, Reply: reply}:
		case <-time.After(time.Second):
			t.Fatalf("timed out submitting %q", line)
		}
		select {
		case r := <-reply:
			return r
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for reply to %q", line)
		}
		return ""
	}

	send(dome.WindowCreated{ID: "a"})
	send(dome.WindowCreated{ID: "b"})
	time.Sleep(20 * time.Millisecond)

	if got := sendCmd("toggle float"); got != "OK" {
		t.Fatalf("toggle float: %q", got)
	}
	if got := sendCmd("toggle float"); got != "OK" {
		t.Fatalf("toggle float back: %q", got)
	}
	if got := sendCmd("focus left"); got != "OK" {
		t.Fatalf("focus left: %q", got)
	}
	if got := sendCmd("toggle layout"); got != "OK" {
		t.Fatalf("toggle layout: %q", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("dispatcher did not stop")
	}

	rectA, okA := backend.Geometry[tree.WindowId("a")]
	rectB, okB := backend.Geometry[tree.WindowId("b")]
	if !okA || !okB {
		t.Fatalf("expected both windows to have placed geometry, got a=%v(%v) b=%v(%v)", rectA, okA, rectB, okB)
	}
	visA, visB := backend.Visible[tree.WindowId("a")], backend.Visible[tree.WindowId("b")]
	if visA == visB {
		t.Fatalf("expected toggle layout to leave exactly one tab visible, got visA=%v visB=%v", visA, visB)
	}
	active := rectA
	if visB {
		active = rectB
	}
	if active.Width != 1000 || active.Height != 1000 {
		t.Fatalf("expected the tabbed container to give its active child the full work area, got %+v", active)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
