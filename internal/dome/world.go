// Package dome implements the policies that sit above the container
// tree: workspaces and monitors, the command executor that mutates them,
// the event-loop dispatcher, and the seams to the platform backend and
// chrome decorator.
package dome

import (
	"fmt"
	"math"

	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/rules"
	"github.com/dome-wm/dome/internal/tree"
)

// SpawnDirection controls which kind of container newly-focused-relative
// insertions prefer when no Auto heuristic override applies.
type SpawnDirection int

const (
	SpawnHorizontal SpawnDirection = iota
	SpawnVertical
	SpawnTabbed
)

// Next cycles Horizontal -> Vertical -> Tabbed -> Horizontal.
func (s SpawnDirection) Next() SpawnDirection {
	switch s {
	case SpawnHorizontal:
		return SpawnVertical
	case SpawnVertical:
		return SpawnTabbed
	default:
		return SpawnHorizontal
	}
}

func (s SpawnDirection) hint() tree.KindHint {
	switch s {
	case SpawnHorizontal:
		return tree.HintSplitH
	case SpawnVertical:
		return tree.HintSplitV
	default:
		return tree.HintTabbed
	}
}

// defaultWorkspaceNames are the ten slots every monitor starts with.
var defaultWorkspaceNames = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// Workspace is an independently displayable container-tree root on a
// monitor, plus the leaves that have been detached from the tree as
// floats.
type Workspace struct {
	Name string
	Tree *tree.Tree
	Root tree.NodeId

	// Floats holds the workspace's floating leaves in creation order
	// (oldest first). Order matters for z-order (spec.md §7's "1 per
	// creation order"), so this is an explicit slice rather than a map —
	// Go's map iteration order is unspecified and would make plan z-order
	// nondeterministic across runs.
	Floats      []tree.NodeId
	FocusedLeaf *tree.NodeId
}

func newWorkspace(name string) *Workspace {
	t, root := tree.NewTree()
	return &Workspace{
		Name: name,
		Tree: t,
		Root: root,
	}
}

// Leaves returns every leaf NodeId in the workspace, tiled or floating.
func (ws *Workspace) Leaves() []tree.NodeId {
	leaves := ws.Tree.Leaves(ws.Root)
	leaves = append(leaves, ws.Floats...)
	return leaves
}

// isFloating reports whether node is one of ws's floating leaves.
func (ws *Workspace) isFloating(node tree.NodeId) bool {
	for _, id := range ws.Floats {
		if id == node {
			return true
		}
	}
	return false
}

// addFloat appends node to the end of the float order, marking it the
// most recently created float.
func (ws *Workspace) addFloat(node tree.NodeId) {
	ws.Floats = append(ws.Floats, node)
}

// removeFloat drops node from the float order, if present.
func (ws *Workspace) removeFloat(node tree.NodeId) {
	for i, id := range ws.Floats {
		if id == node {
			ws.Floats = append(ws.Floats[:i], ws.Floats[i+1:]...)
			return
		}
	}
}

// Monitor is a physical display with a work-area rectangle and an
// ordered set of workspaces, one of which is active.
type Monitor struct {
	ID              string
	WorkArea        geometry.Rect
	Workspaces      []*Workspace
	ActiveWorkspace int
}

// NewMonitor creates a monitor pre-populated with the ten default
// workspace slots, the first of which is active.
func NewMonitor(id string, workArea geometry.Rect) *Monitor {
	m := &Monitor{ID: id, WorkArea: workArea}
	for _, name := range defaultWorkspaceNames {
		m.Workspaces = append(m.Workspaces, newWorkspace(name))
	}
	return m
}

// Active returns the monitor's currently active workspace.
func (m *Monitor) Active() *Workspace {
	return m.Workspaces[m.ActiveWorkspace]
}

// WorkspaceByName returns the workspace with the given name and its
// index, creating it on demand (named workspaces beyond the default ten
// slots are allowed) if it does not already exist.
func (m *Monitor) WorkspaceByName(name string) (*Workspace, int) {
	for i, ws := range m.Workspaces {
		if ws.Name == name {
			return ws, i
		}
	}
	ws := newWorkspace(name)
	m.Workspaces = append(m.Workspaces, ws)
	return ws, len(m.Workspaces) - 1
}

func (m *Monitor) center() (float64, float64) {
	return m.WorkArea.X + m.WorkArea.Width/2, m.WorkArea.Y + m.WorkArea.Height/2
}

// FocusRef names a single leaf within a specific monitor/workspace pair.
// A NodeId alone is not globally unique since every workspace owns its
// own tree arena.
type FocusRef struct {
	Monitor   int
	Workspace int
	Node      tree.NodeId
}

// World is the whole managed window set: an ordered list of monitors,
// the focused one, the default container kind for new insertions, and
// the config/rules that govern them.
type World struct {
	Monitors       []*Monitor
	FocusedMonitor int
	SpawnDirection SpawnDirection

	// SpawnDirectionSet is false until toggle spawn_direction fires at
	// least once. While false, SpawnDirection carries no opinion and new
	// windows are admitted with HintAuto, deferring to each container's
	// own remembered split axis and then the aspect-ratio heuristic.
	SpawnDirectionSet bool

	Config *config.Config
	Rules  *rules.Engine

	// FocusedLeaf mirrors the focused monitor's active workspace's
	// FocusedLeaf (invariant 5): at most one leaf in the world is
	// focused, and this field always names it.
	FocusedLeaf *FocusRef

	// FocusLevel holds the "focus parent" pointer: when set, the next
	// directional command operates on this container instead of
	// FocusedLeaf.
	FocusLevel *FocusRef
}

// NewWorld creates an empty World with no monitors yet attached; the
// platform backend populates monitors via a MonitorsChanged event.
func NewWorld(cfg *config.Config, ruleEngine *rules.Engine) *World {
	return &World{Config: cfg, Rules: ruleEngine}
}

// FocusedMon returns the currently focused monitor, or nil if none exist.
func (w *World) FocusedMon() *Monitor {
	if w.FocusedMonitor < 0 || w.FocusedMonitor >= len(w.Monitors) {
		return nil
	}
	return w.Monitors[w.FocusedMonitor]
}

// FocusedWorkspace returns the focused monitor and its active workspace.
func (w *World) FocusedWorkspace() (*Monitor, *Workspace) {
	mon := w.FocusedMon()
	if mon == nil {
		return nil, nil
	}
	return mon, mon.Active()
}

// SyncFocusedLeaf recomputes World.FocusedLeaf from the focused
// monitor's active workspace, enforcing invariant 5.
func (w *World) SyncFocusedLeaf() {
	mon, ws := w.FocusedWorkspace()
	if mon == nil || ws == nil || ws.FocusedLeaf == nil {
		w.FocusedLeaf = nil
		return
	}
	w.FocusedLeaf = &FocusRef{Monitor: w.FocusedMonitor, Workspace: mon.ActiveWorkspace, Node: *ws.FocusedLeaf}
}

// setWorkspaceFocus sets ws.FocusedLeaf and, if ws is the focused
// monitor's active workspace, mirrors it onto World.FocusedLeaf.
func (w *World) setWorkspaceFocus(mon *Monitor, ws *Workspace, node tree.NodeId) {
	ws.FocusedLeaf = &node
	ws.Tree.SyncActivePath(node)
	w.SyncFocusedLeaf()
}

// InsertWindow admits a newly-discovered window into the focused
// workspace, at the focused leaf's position when one exists, or as the
// workspace's first child otherwise. The container kind for that
// insertion follows spec's precedence: an explicitly toggled global
// spawn_direction wins outright; otherwise the target's parent container
// picks its own remembered split axis, and only when it has none yet
// does the aspect-ratio heuristic decide.
func (w *World) InsertWindow(id tree.WindowId) (tree.NodeId, error) {
	mon, ws := w.FocusedWorkspace()
	if mon == nil || ws == nil {
		return 0, fmt.Errorf("dome: no focused workspace to insert window into")
	}
	leaf := ws.Tree.NewLeaf(id)
	var target tree.NodeId
	pos := tree.Into
	hint := tree.HintAuto
	if ws.FocusedLeaf != nil {
		target = *ws.FocusedLeaf
		pos = tree.After
		if w.SpawnDirectionSet {
			hint = w.SpawnDirection.hint()
		}
	} else {
		target = ws.Root
	}
	nodeID, err := ws.Tree.Insert(target, pos, hint, leaf)
	if err != nil {
		return 0, fmt.Errorf("dome: insert window: %w", err)
	}
	w.setWorkspaceFocus(mon, ws, nodeID)
	return nodeID, nil
}

// FindWindow searches every monitor and workspace for the leaf wrapping
// id, returning false if it is not currently managed.
func (w *World) FindWindow(id tree.WindowId) (monIdx, wsIdx int, node tree.NodeId, floating bool, ok bool) {
	for mi, mon := range w.Monitors {
		for wi, ws := range mon.Workspaces {
			// Float leaves share the workspace arena, so tiled leaves are
			// searched only among those reachable from the root.
			for _, n := range ws.Tree.Leaves(ws.Root) {
				if leaf, ok := ws.Tree.Leaf(n); ok && leaf.Window == id {
					return mi, wi, n, false, true
				}
			}
			for _, floatID := range ws.Floats {
				if leaf, ok := ws.Tree.Leaf(floatID); ok && leaf.Window == id {
					return mi, wi, floatID, true, true
				}
			}
		}
	}
	return 0, 0, 0, false, false
}

// RemoveWindow removes the window from wherever it lives (tiled or
// floating) and re-settles workspace focus onto a remaining leaf.
func (w *World) RemoveWindow(id tree.WindowId) error {
	monIdx, wsIdx, node, floating, ok := w.FindWindow(id)
	if !ok {
		return fmt.Errorf("dome: window %s is not managed", id)
	}
	mon := w.Monitors[monIdx]
	ws := mon.Workspaces[wsIdx]

	wasFocused := ws.FocusedLeaf != nil && *ws.FocusedLeaf == node
	if floating {
		ws.removeFloat(node)
	} else {
		if err := ws.Tree.Remove(node); err != nil {
			return fmt.Errorf("dome: remove window: %w", err)
		}
	}
	if wasFocused {
		remaining := ws.Leaves()
		if len(remaining) > 0 {
			w.setWorkspaceFocus(mon, ws, remaining[0])
		} else {
			ws.FocusedLeaf = nil
			if monIdx == w.FocusedMonitor {
				w.SyncFocusedLeaf()
			}
		}
	}
	return nil
}

// FocusWorkspaceByName switches the focused monitor's active workspace,
// creating the named workspace on demand.
func (w *World) FocusWorkspaceByName(name string) error {
	mon := w.FocusedMon()
	if mon == nil {
		return fmt.Errorf("dome: no focused monitor")
	}
	_, idx := mon.WorkspaceByName(name)
	mon.ActiveWorkspace = idx
	w.SyncFocusedLeaf()
	return nil
}

// MoveFocusedLeafToWorkspace relocates the focused leaf to the named
// workspace on the focused monitor. Focus stays on the moved window only
// if that workspace is already active; otherwise it falls back to the
// next sibling, or the previous one if there was no next.
func (w *World) MoveFocusedLeafToWorkspace(name string) error {
	mon, ws := w.FocusedWorkspace()
	if mon == nil || ws == nil || ws.FocusedLeaf == nil {
		return fmt.Errorf("dome: no focused window")
	}
	moving := *ws.FocusedLeaf
	leaf, ok := ws.Tree.Leaf(moving)
	if !ok {
		return fmt.Errorf("dome: focused leaf is not a window")
	}
	windowID := leaf.Window

	siblings := ws.Tree.Leaves(ws.Root)
	fallback := fallbackSibling(siblings, moving)

	if err := ws.Tree.Remove(moving); err != nil {
		return fmt.Errorf("dome: move to workspace: %w", err)
	}
	targetActive := mon.Workspaces[mon.ActiveWorkspace] == ws
	_ = targetActive

	target, _ := mon.WorkspaceByName(name)
	newLeaf := target.Tree.NewLeaf(windowID)
	nodeID, err := target.Tree.Insert(target.Root, tree.Into, tree.HintAuto, newLeaf)
	if err != nil {
		return fmt.Errorf("dome: move to workspace: %w", err)
	}
	target.FocusedLeaf = &nodeID
	target.Tree.SyncActivePath(nodeID)

	if target == mon.Active() {
		w.setWorkspaceFocus(mon, target, nodeID)
		return nil
	}
	if fallback != 0 {
		w.setWorkspaceFocus(mon, ws, fallback)
	} else {
		ws.FocusedLeaf = nil
	}
	w.SyncFocusedLeaf()
	return nil
}

// fallbackSibling returns the leaf that should receive focus after
// moving, preferring the next leaf in traversal order over the previous.
func fallbackSibling(leaves []tree.NodeId, moving tree.NodeId) tree.NodeId {
	for i, id := range leaves {
		if id != moving {
			continue
		}
		if i+1 < len(leaves) {
			return leaves[i+1]
		}
		if i > 0 {
			return leaves[i-1]
		}
		return 0
	}
	return 0
}

// monitorInDirection resolves the nearest monitor whose center lies in
// dir relative to the focused monitor's center (Euclidean edge
// adjacency).
func (w *World) monitorInDirection(dir geometry.Direction) (int, bool) {
	focused := w.FocusedMon()
	if focused == nil {
		return 0, false
	}
	fcx, fcy := focused.center()
	best := -1
	bestDist := math.MaxFloat64
	for i, mon := range w.Monitors {
		if i == w.FocusedMonitor {
			continue
		}
		cx, cy := mon.center()
		switch dir {
		case geometry.Left:
			if cx >= fcx {
				continue
			}
		case geometry.Right:
			if cx <= fcx {
				continue
			}
		case geometry.Up:
			if cy >= fcy {
				continue
			}
		default:
			if cy <= fcy {
				continue
			}
		}
		dx, dy := cx-fcx, cy-fcy
		dist := dx*dx + dy*dy
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best, best >= 0
}

// MonitorByName returns the index of the monitor with the given id.
func (w *World) MonitorByName(name string) (int, bool) {
	for i, mon := range w.Monitors {
		if mon.ID == name {
			return i, true
		}
	}
	return 0, false
}

// FocusMonitor switches the focused monitor to the one resolved from dir
// and focuses its active workspace's focused leaf, or the
// leftmost-deepest leaf if the workspace has none.
func (w *World) FocusMonitor(dir geometry.Direction) error {
	idx, ok := w.monitorInDirection(dir)
	if !ok {
		return fmt.Errorf("dome: no monitor in direction %s", dir)
	}
	return w.focusMonitorIndex(idx)
}

// FocusMonitorByName switches the focused monitor by name.
func (w *World) FocusMonitorByName(name string) error {
	idx, ok := w.MonitorByName(name)
	if !ok {
		return fmt.Errorf("dome: no monitor named %q", name)
	}
	return w.focusMonitorIndex(idx)
}

func (w *World) focusMonitorIndex(idx int) error {
	w.FocusedMonitor = idx
	mon := w.Monitors[idx]
	ws := mon.Active()
	if ws.FocusedLeaf == nil {
		if leaves := ws.Tree.Leaves(ws.Root); len(leaves) > 0 {
			leftmost := leaves[0]
			ws.FocusedLeaf = &leftmost
		}
	}
	w.SyncFocusedLeaf()
	return nil
}

// MoveFocusedLeafToMonitor relocates the focused leaf onto the target
// monitor's active workspace (by direction or by name), appending it to
// the workspace root and moving focus along with it.
func (w *World) MoveFocusedLeafToMonitor(idx int) error {
	mon, ws := w.FocusedWorkspace()
	if mon == nil || ws == nil || ws.FocusedLeaf == nil {
		return fmt.Errorf("dome: no focused window")
	}
	moving := *ws.FocusedLeaf
	leaf, ok := ws.Tree.Leaf(moving)
	if !ok {
		return fmt.Errorf("dome: focused leaf is not a window")
	}
	windowID := leaf.Window
	siblings := ws.Tree.Leaves(ws.Root)
	fallback := fallbackSibling(siblings, moving)

	if err := ws.Tree.Remove(moving); err != nil {
		return fmt.Errorf("dome: move to monitor: %w", err)
	}
	if fallback != 0 {
		w.setWorkspaceFocus(mon, ws, fallback)
	} else {
		ws.FocusedLeaf = nil
	}

	targetMon := w.Monitors[idx]
	targetWs := targetMon.Active()
	newLeaf := targetWs.Tree.NewLeaf(windowID)
	nodeID, err := targetWs.Tree.Insert(targetWs.Root, tree.Into, tree.HintAuto, newLeaf)
	if err != nil {
		return fmt.Errorf("dome: move to monitor: %w", err)
	}
	targetWs.FocusedLeaf = &nodeID
	targetWs.Tree.SyncActivePath(nodeID)
	w.FocusedMonitor = idx
	w.SyncFocusedLeaf()
	return nil
}

// RemoveMonitor handles a MonitorsChanged removal: every window on the
// removed monitor is re-rooted onto the focused monitor's active
// workspace as a single new Tabbed container, preserving relative focus.
func (w *World) RemoveMonitor(id string) error {
	idx, ok := w.MonitorByName(id)
	if !ok {
		return fmt.Errorf("dome: no monitor named %q", id)
	}
	removed := w.Monitors[idx]
	w.Monitors = append(w.Monitors[:idx], w.Monitors[idx+1:]...)
	if w.FocusedMonitor == idx {
		w.FocusedMonitor = 0
	} else if w.FocusedMonitor > idx {
		w.FocusedMonitor--
	}
	if len(w.Monitors) == 0 {
		return nil
	}
	target, targetWs := w.FocusedWorkspace()
	if target == nil {
		return fmt.Errorf("dome: no monitor left to migrate windows onto")
	}

	var migrating []tree.WindowId
	var focusedWindow tree.WindowId
	hasFocused := false
	for _, ws := range removed.Workspaces {
		for _, id := range ws.Leaves() {
			leaf, ok := ws.Tree.Leaf(id)
			if !ok {
				continue
			}
			migrating = append(migrating, leaf.Window)
			if ws.FocusedLeaf != nil && *ws.FocusedLeaf == id {
				focusedWindow = leaf.Window
				hasFocused = true
			}
		}
	}
	if len(migrating) == 0 {
		return nil
	}

	// Build the group in isolation first — Insert's Into semantics mutate an
	// empty target's own Kind in place rather than wrapping it, which would
	// turn the workspace root itself into a Tabbed container instead of
	// giving it a single new Tabbed child. Grouping the migrated windows
	// under a detached container first, then attaching that container to
	// the root in one step, sidesteps that regardless of whether the root
	// already had other children.
	group := targetWs.Tree.NewContainer(tree.Tabbed)
	firstLeaf, err := targetWs.Tree.Insert(group, tree.Into, tree.HintTabbed, targetWs.Tree.NewLeaf(migrating[0]))
	if err != nil {
		return fmt.Errorf("dome: migrate monitor windows: %w", err)
	}
	var newFocus tree.NodeId
	if hasFocused && focusedWindow == migrating[0] {
		newFocus = firstLeaf
	}
	prev := firstLeaf
	for _, winID := range migrating[1:] {
		nodeID, err := targetWs.Tree.Insert(prev, tree.After, tree.HintTabbed, targetWs.Tree.NewLeaf(winID))
		if err != nil {
			return fmt.Errorf("dome: migrate monitor windows: %w", err)
		}
		if hasFocused && winID == focusedWindow {
			newFocus = nodeID
		}
		prev = nodeID
	}
	if err := targetWs.Tree.AppendChild(targetWs.Root, group); err != nil {
		return fmt.Errorf("dome: migrate monitor windows: %w", err)
	}
	if newFocus == 0 {
		newFocus = firstLeaf
	}
	w.setWorkspaceFocus(target, targetWs, newFocus)
	return nil
}
