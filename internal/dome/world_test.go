package dome

import (
	"testing"

	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/tree"
)

func newTestWorld(monitors ...*Monitor) *World {
	w := NewWorld(nil, nil)
	w.Monitors = monitors
	return w
}

func TestNewMonitorHasTenDefaultWorkspaces(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	if len(mon.Workspaces) != 10 {
		t.Fatalf("expected 10 default workspaces, got %d", len(mon.Workspaces))
	}
	if mon.Workspaces[0].Name != "0" {
		t.Fatalf("expected first workspace named 0, got %q", mon.Workspaces[0].Name)
	}
}

func TestInsertWindowFocusesFirstChild(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	w := newTestWorld(mon)

	nodeID, err := w.InsertWindow("win-1")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	ws := mon.Active()
	if ws.FocusedLeaf == nil || *ws.FocusedLeaf != nodeID {
		t.Fatalf("expected inserted window to be focused")
	}
	if w.FocusedLeaf == nil || w.FocusedLeaf.Node != nodeID {
		t.Fatalf("expected World.FocusedLeaf to mirror the workspace focus")
	}
}

func TestInsertWindowSplitsNextToFocused(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	w := newTestWorld(mon)

	if _, err := w.InsertWindow("a"); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := w.InsertWindow("b"); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	ws := mon.Active()
	leaves := ws.Tree.Leaves(ws.Root)
	if len(leaves) != 2 {
		t.Fatalf("expected two leaves, got %d", len(leaves))
	}
}

func TestRemoveWindowFallsBackToRemainingLeaf(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	w := newTestWorld(mon)
	if _, err := w.InsertWindow("a"); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := w.InsertWindow("b"); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if err := w.RemoveWindow("b"); err != nil {
		t.Fatalf("remove b: %v", err)
	}
	ws := mon.Active()
	leaf, ok := ws.Tree.Leaf(*ws.FocusedLeaf)
	if !ok || leaf.Window != "a" {
		t.Fatalf("expected focus to fall back to the remaining window a")
	}
}

func TestFocusWorkspaceByNameCreatesOnDemand(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	w := newTestWorld(mon)
	if err := w.FocusWorkspaceByName("comms"); err != nil {
		t.Fatalf("focus workspace: %v", err)
	}
	if mon.Active().Name != "comms" {
		t.Fatalf("expected active workspace to be the newly created one, got %q", mon.Active().Name)
	}
}

func TestMoveFocusedLeafToWorkspaceFallsBackFocus(t *testing.T) {
	mon := NewMonitor("eDP-1", geometry.Rect{Width: 1920, Height: 1080})
	w := newTestWorld(mon)
	if _, err := w.InsertWindow("a"); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := w.InsertWindow("b"); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	// b is now focused; move it to another workspace while staying on
	// this one, so focus should fall back onto a.
	if err := w.MoveFocusedLeafToWorkspace("1"); err != nil {
		t.Fatalf("move to workspace: %v", err)
	}
	ws := mon.Active()
	leaf, ok := ws.Tree.Leaf(*ws.FocusedLeaf)
	if !ok || leaf.Window != "a" {
		t.Fatalf("expected focus fallback to a, got %+v", ws.FocusedLeaf)
	}
	target, _ := mon.WorkspaceByName("1")
	found, ok := target.Tree.FindLeafByWindow("b")
	if !ok {
		t.Fatalf("expected b to have moved to workspace 1")
	}
	_ = found
}

func TestFocusMonitorResolvesEuclideanAdjacency(t *testing.T) {
	left := NewMonitor("left", geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})
	right := NewMonitor("right", geometry.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080})
	w := newTestWorld(left, right)
	w.FocusedMonitor = 0

	if err := w.FocusMonitor(geometry.Right); err != nil {
		t.Fatalf("focus monitor right: %v", err)
	}
	if w.FocusedMonitor != 1 {
		t.Fatalf("expected focused monitor to be the right one, got %d", w.FocusedMonitor)
	}
	if err := w.FocusMonitor(geometry.Left); err != nil {
		t.Fatalf("focus monitor left: %v", err)
	}
	if w.FocusedMonitor != 0 {
		t.Fatalf("expected focused monitor back to left, got %d", w.FocusedMonitor)
	}
}

func TestRemoveMonitorMigratesWindowsIntoTabbedContainer(t *testing.T) {
	primary := NewMonitor("primary", geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})
	secondary := NewMonitor("secondary", geometry.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080})
	w := newTestWorld(primary, secondary)
	w.FocusedMonitor = 1
	if _, err := w.InsertWindow("a"); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := w.InsertWindow("b"); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	w.FocusedMonitor = 0

	if err := w.RemoveMonitor("secondary"); err != nil {
		t.Fatalf("remove monitor: %v", err)
	}
	if len(w.Monitors) != 1 {
		t.Fatalf("expected one remaining monitor, got %d", len(w.Monitors))
	}
	ws := primary.Active()
	leaves := ws.Tree.Leaves(ws.Root)
	if len(leaves) != 2 {
		t.Fatalf("expected both migrated windows present, got %d leaves", len(leaves))
	}
	root, ok := ws.Tree.Container(ws.Root)
	if !ok || len(root.Children) != 1 {
		t.Fatalf("expected a single wrapper child under the workspace root")
	}
	group, ok := ws.Tree.Container(root.Children[0])
	if !ok || group.Kind != tree.Tabbed {
		t.Fatalf("expected migrated windows to land in a single Tabbed container")
	}
}
