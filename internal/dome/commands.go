package dome

import (
	"fmt"

	"github.com/dome-wm/dome/internal/command"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/layout"
	"github.com/dome-wm/dome/internal/tree"
)

// SideEffectKind distinguishes the side effects a command can ask the
// dispatcher to perform outside of the World itself.
type SideEffectKind int

const (
	SideEffectExec SideEffectKind = iota
	SideEffectExit
)

// SideEffect is a request the executor cannot satisfy on its own: a
// detached process to spawn, or a shutdown to begin.
type SideEffect struct {
	Kind    SideEffectKind
	Command string // SideEffectExec
}

// WorkspacePlan pairs a freshly computed layout with the monitor and
// workspace it belongs to, so the dispatcher knows where to apply it.
type WorkspacePlan struct {
	Monitor   *Monitor
	Workspace *Workspace
	Plan      *layout.Plan
}

// Result is everything a command execution produced: the layout diffs
// for every workspace it touched, the window that should now receive
// input focus (if any), and any side effects to run after the World
// mutation has been applied.
type Result struct {
	Plans       []WorkspacePlan
	Focus       layout.FocusIntent
	SideEffects []SideEffect
}

// Executor applies parsed commands to a World, computing layout diffs
// and rolling back cleanly on structural errors.
type Executor struct {
	world *World
}

// NewExecutor returns an Executor operating on world.
func NewExecutor(world *World) *Executor {
	return &Executor{world: world}
}

// Execute mutates the World per cmd and reports the resulting layout
// diffs, focus intent, and side effects. Structural mutations run
// against a clone of every workspace the command can touch, taken before
// dispatch; the clone is only kept in place if the command returns
// without error, otherwise every touched workspace's tree is restored to
// what it was before Execute was called (copy-on-write at workspace
// granularity, per the invariant that a rejected command leaves no trace).
func (e *Executor) Execute(cmd command.Command) (Result, error) {
	touched := e.touchedWorkspaces(cmd)
	originalTrees := make(map[*Workspace]*tree.Tree, len(touched))
	originalFloats := make(map[*Workspace][]tree.NodeId, len(touched))
	for _, ws := range touched {
		originalTrees[ws] = ws.Tree
		ws.Tree = ws.Tree.Clone()
		originalFloats[ws] = ws.Floats
		ws.Floats = append([]tree.NodeId(nil), ws.Floats...)
	}

	result, err := e.dispatch(cmd)
	if err != nil {
		for ws, orig := range originalTrees {
			ws.Tree = orig
		}
		for ws, orig := range originalFloats {
			ws.Floats = orig
		}
		return Result{}, err
	}
	return result, nil
}

// touchedWorkspaces names every workspace a command might structurally
// mutate, so Execute can clone them before dispatch. Purely focus-moving
// commands (focus/toggle spawn_direction) touch no tree structure and are
// omitted.
func (e *Executor) touchedWorkspaces(cmd command.Command) []*Workspace {
	_, focusedWs := e.world.FocusedWorkspace()
	switch cmd.Kind {
	case command.MoveDirection:
		if focusedWs == nil {
			return nil
		}
		// A move that reaches the workspace boundary escalates into a
		// cross-monitor move (moveDirection below), so the adjacent
		// monitor's active workspace needs the same copy-on-write
		// protection even though most moves never reach it.
		if idx, ok := e.world.monitorInDirection(cmd.Direction); ok {
			if dstWs := e.world.Monitors[idx].Active(); dstWs != focusedWs {
				return []*Workspace{focusedWs, dstWs}
			}
		}
		return []*Workspace{focusedWs}
	case command.MoveWorkspace:
		mon := e.world.FocusedMon()
		if mon == nil || focusedWs == nil {
			return nil
		}
		target, _ := mon.WorkspaceByName(cmd.WorkspaceName)
		if target == focusedWs {
			return []*Workspace{focusedWs}
		}
		return []*Workspace{focusedWs, target}
	case command.MoveMonitor:
		if focusedWs == nil {
			return nil
		}
		idx, ok := e.resolveMonitorTarget(cmd)
		if !ok {
			return []*Workspace{focusedWs}
		}
		dstWs := e.world.Monitors[idx].Active()
		if dstWs == focusedWs {
			return []*Workspace{focusedWs}
		}
		return []*Workspace{focusedWs, dstWs}
	case command.ToggleDirection, command.ToggleLayout, command.ToggleFloat:
		if focusedWs == nil {
			return nil
		}
		return []*Workspace{focusedWs}
	default:
		return nil
	}
}

func (e *Executor) dispatch(cmd command.Command) (Result, error) {
	switch cmd.Kind {
	case command.FocusDirection:
		return e.focusDirection(cmd.Direction)
	case command.FocusParent:
		return e.focusParent()
	case command.FocusTab:
		return e.focusTab(cmd.Tab == command.TabNext)
	case command.FocusWorkspace:
		return e.focusWorkspace(cmd.WorkspaceName)
	case command.FocusMonitor:
		return e.focusMonitor(cmd)
	case command.MoveDirection:
		return e.moveDirection(cmd.Direction)
	case command.MoveWorkspace:
		return e.moveWorkspace(cmd.WorkspaceName)
	case command.MoveMonitor:
		return e.moveMonitor(cmd)
	case command.ToggleSpawnDirection:
		e.world.SpawnDirection = e.world.SpawnDirection.Next()
		e.world.SpawnDirectionSet = true
		return Result{}, nil
	case command.ToggleDirection:
		return e.toggleDirection()
	case command.ToggleLayout:
		return e.toggleLayout()
	case command.ToggleFloat:
		return e.toggleFloat()
	case command.Exec:
		return Result{SideEffects: []SideEffect{{Kind: SideEffectExec, Command: cmd.ExecCommand}}}, nil
	case command.Exit:
		return Result{SideEffects: []SideEffect{{Kind: SideEffectExit}}}, nil
	default:
		return Result{}, fmt.Errorf("dome: command %v has no executor case", cmd.Kind)
	}
}

// focusNode resolves the node a directional/structural command should
// act on: the focus-level pointer if one is held, otherwise the focused
// leaf. Consuming a focus-level pointer clears it.
func (e *Executor) focusNode(consumeLevel bool) (mon *Monitor, ws *Workspace, node tree.NodeId, ok bool) {
	if e.world.FocusLevel != nil {
		ref := *e.world.FocusLevel
		if consumeLevel {
			e.world.FocusLevel = nil
		}
		mon = e.world.Monitors[ref.Monitor]
		ws = mon.Workspaces[ref.Workspace]
		return mon, ws, ref.Node, true
	}
	mon, ws = e.world.FocusedWorkspace()
	if mon == nil || ws == nil || ws.FocusedLeaf == nil {
		return nil, nil, 0, false
	}
	return mon, ws, *ws.FocusedLeaf, true
}

func (e *Executor) gapsFor(workArea geometry.Rect) layout.Gaps {
	cfg := e.world.Config
	return layout.Gaps{
		Inner:           cfg.Gaps.Inner,
		Outer:           cfg.Gaps.Outer,
		TabBarHeight:    cfg.TabBarHeight,
		MinWidth:        cfg.MinWidth.Resolve(workArea.Width),
		MinHeight:       cfg.MinHeight.Resolve(workArea.Height),
		MaxWidth:        cfg.MaxWidth.Resolve(workArea.Width),
		MaxHeight:       cfg.MaxHeight.Resolve(workArea.Height),
		AutomaticTiling: cfg.AutomaticTiling,
	}
}

func (e *Executor) planFor(mon *Monitor, ws *Workspace) WorkspacePlan {
	plan := layout.Compute(ws.Tree, ws.Root, mon.WorkArea, e.gapsFor(mon.WorkArea))
	var focused tree.NodeId
	hasFocus := ws.FocusedLeaf != nil
	if hasFocus {
		focused = *ws.FocusedLeaf
	}
	layout.ApplyFloats(plan, ws.Tree, ws.Floats, mon.WorkArea, focused, hasFocus)
	return WorkspacePlan{Monitor: mon, Workspace: ws, Plan: plan}
}

func (e *Executor) focusDirection(dir geometry.Direction) (Result, error) {
	mon, ws, node, ok := e.focusNode(true)
	if !ok {
		return Result{}, nil
	}
	res, err := ws.Tree.FocusMove(node, dir)
	if err != nil {
		return Result{}, fmt.Errorf("dome: focus %s: %w", dir, err)
	}
	if res.Escaped {
		if err := e.world.FocusMonitor(dir); err != nil {
			return Result{}, nil
		}
		fmon, fws := e.world.FocusedWorkspace()
		focus := layout.FocusIntent{}
		if fws.FocusedLeaf != nil {
			if leaf, ok := fws.Tree.Leaf(*fws.FocusedLeaf); ok {
				focus = layout.FocusIntent{Window: leaf.Window, Valid: true}
			}
		}
		return Result{Plans: []WorkspacePlan{e.planFor(fmon, fws)}, Focus: focus}, nil
	}
	ws.Tree.SyncActivePath(res.Target)
	e.world.setWorkspaceFocus(mon, ws, res.Target)
	leaf, _ := ws.Tree.Leaf(res.Target)
	return Result{
		Plans: []WorkspacePlan{e.planFor(mon, ws)},
		Focus: layout.FocusIntent{Window: leaf.Window, Valid: true},
	}, nil
}

func (e *Executor) focusParent() (Result, error) {
	mon, ws, node, ok := e.focusNode(false)
	if !ok {
		return Result{}, nil
	}
	parentID, ok := ws.Tree.Parent(node)
	if !ok {
		return Result{}, nil
	}
	e.world.FocusLevel = &FocusRef{Monitor: e.monitorIndex(mon), Workspace: e.workspaceIndex(mon, ws), Node: parentID}
	return Result{}, nil
}

func (e *Executor) focusTab(forward bool) (Result, error) {
	mon, ws, node, ok := e.focusNode(true)
	if !ok {
		return Result{}, nil
	}
	leaf, cycled := ws.Tree.CycleTab(node, forward)
	if !cycled {
		return Result{}, nil
	}
	e.world.setWorkspaceFocus(mon, ws, leaf)
	l, _ := ws.Tree.Leaf(leaf)
	return Result{
		Plans: []WorkspacePlan{e.planFor(mon, ws)},
		Focus: layout.FocusIntent{Window: l.Window, Valid: true},
	}, nil
}

func (e *Executor) focusWorkspace(name string) (Result, error) {
	if err := e.world.FocusWorkspaceByName(name); err != nil {
		return Result{}, err
	}
	mon, ws := e.world.FocusedWorkspace()
	focus := layout.FocusIntent{}
	if ws.FocusedLeaf != nil {
		if leaf, ok := ws.Tree.Leaf(*ws.FocusedLeaf); ok {
			focus = layout.FocusIntent{Window: leaf.Window, Valid: true}
		}
	}
	return Result{Plans: []WorkspacePlan{e.planFor(mon, ws)}, Focus: focus}, nil
}

func (e *Executor) resolveMonitorTarget(cmd command.Command) (int, bool) {
	if cmd.MonitorByName {
		return e.world.MonitorByName(cmd.MonitorName)
	}
	return e.world.monitorInDirection(cmd.MonitorDirection)
}

func (e *Executor) focusMonitor(cmd command.Command) (Result, error) {
	idx, ok := e.resolveMonitorTarget(cmd)
	if !ok {
		return Result{}, fmt.Errorf("dome: no such monitor")
	}
	if err := e.world.focusMonitorIndex(idx); err != nil {
		return Result{}, err
	}
	mon, ws := e.world.FocusedWorkspace()
	focus := layout.FocusIntent{}
	if ws.FocusedLeaf != nil {
		if leaf, ok := ws.Tree.Leaf(*ws.FocusedLeaf); ok {
			focus = layout.FocusIntent{Window: leaf.Window, Valid: true}
		}
	}
	return Result{Plans: []WorkspacePlan{e.planFor(mon, ws)}, Focus: focus}, nil
}

func (e *Executor) moveDirection(dir geometry.Direction) (Result, error) {
	mon, ws, node, ok := e.focusNode(false)
	if !ok {
		return Result{}, nil
	}
	res, err := ws.Tree.MoveNode(node, dir)
	if err != nil {
		return Result{}, fmt.Errorf("dome: move %s: %w", dir, err)
	}
	if res.Escaped {
		idx, ok := e.world.monitorInDirection(dir)
		if !ok {
			return Result{}, nil
		}
		if err := e.world.MoveFocusedLeafToMonitor(idx); err != nil {
			return Result{}, err
		}
		fmon, fws := e.world.FocusedWorkspace()
		return Result{Plans: []WorkspacePlan{
			e.planFor(mon, ws),
			e.planFor(fmon, fws),
		}}, nil
	}
	return Result{Plans: []WorkspacePlan{e.planFor(mon, ws)}}, nil
}

func (e *Executor) moveWorkspace(name string) (Result, error) {
	mon, ws := e.world.FocusedWorkspace()
	if err := e.world.MoveFocusedLeafToWorkspace(name); err != nil {
		return Result{}, err
	}
	target, _ := mon.WorkspaceByName(name)
	plans := []WorkspacePlan{e.planFor(mon, ws)}
	if target != ws {
		plans = append(plans, e.planFor(mon, target))
	}
	return Result{Plans: plans}, nil
}

func (e *Executor) moveMonitor(cmd command.Command) (Result, error) {
	srcMon, srcWs := e.world.FocusedWorkspace()
	idx, ok := e.resolveMonitorTarget(cmd)
	if !ok {
		return Result{}, fmt.Errorf("dome: no such monitor")
	}
	if err := e.world.MoveFocusedLeafToMonitor(idx); err != nil {
		return Result{}, err
	}
	dstMon, dstWs := e.world.FocusedWorkspace()
	return Result{Plans: []WorkspacePlan{
		e.planFor(srcMon, srcWs),
		e.planFor(dstMon, dstWs),
	}}, nil
}

func (e *Executor) toggleDirection() (Result, error) {
	mon, ws, node, ok := e.focusNode(false)
	if !ok {
		return Result{}, nil
	}
	containerID, ok := ws.Tree.Parent(node)
	if !ok {
		return Result{}, nil
	}
	if err := ws.Tree.ToggleDirection(containerID); err != nil {
		return Result{}, err
	}
	return Result{Plans: []WorkspacePlan{e.planFor(mon, ws)}}, nil
}

func (e *Executor) toggleLayout() (Result, error) {
	mon, ws, node, ok := e.focusNode(false)
	if !ok {
		return Result{}, nil
	}
	containerID, ok := ws.Tree.Parent(node)
	if !ok {
		return Result{}, nil
	}
	if err := ws.Tree.ToggleLayout(containerID); err != nil {
		return Result{}, err
	}
	return Result{Plans: []WorkspacePlan{e.planFor(mon, ws)}}, nil
}

func (e *Executor) toggleFloat() (Result, error) {
	mon, ws := e.world.FocusedWorkspace()
	if mon == nil || ws == nil || ws.FocusedLeaf == nil {
		return Result{}, nil
	}
	node := *ws.FocusedLeaf
	if ws.isFloating(node) {
		return e.floatToTiled(mon, ws, node)
	}
	return e.tiledToFloat(mon, ws, node)
}

func (e *Executor) tiledToFloat(mon *Monitor, ws *Workspace, node tree.NodeId) (Result, error) {
	leaf, ok := ws.Tree.Leaf(node)
	if !ok {
		return Result{}, fmt.Errorf("dome: toggle float: focused leaf missing")
	}
	windowID := leaf.Window
	var floatRect geometry.Rect
	if leaf.LastTiledRect != nil {
		floatRect = *leaf.LastTiledRect
	} else {
		floatRect = mon.WorkArea.Centered(mon.WorkArea.Width*0.6, mon.WorkArea.Height*0.6)
	}

	if err := ws.Tree.Remove(node); err != nil {
		return Result{}, fmt.Errorf("dome: toggle float: %w", err)
	}

	floatLeaf := ws.Tree.NewLeaf(windowID)
	floatLeaf.Floating = true
	floatLeaf.FloatRect = floatRect
	floatID := floatLeaf.NodeID()
	ws.addFloat(floatID)
	e.world.setWorkspaceFocus(mon, ws, floatID)
	return Result{
		Plans: []WorkspacePlan{e.planFor(mon, ws)},
		Focus: layout.FocusIntent{Window: windowID, Valid: true},
	}, nil
}

func (e *Executor) floatToTiled(mon *Monitor, ws *Workspace, node tree.NodeId) (Result, error) {
	leaf, ok := ws.Tree.Leaf(node)
	if !ok {
		return Result{}, fmt.Errorf("dome: toggle float: float leaf missing")
	}
	windowID := leaf.Window
	ws.removeFloat(node)

	target := ws.Tree.ActiveLeaf(ws.Root)
	pos := tree.After
	hint := tree.HintAuto
	if target == ws.Root {
		pos = tree.Into
	} else if e.world.SpawnDirectionSet {
		hint = e.world.SpawnDirection.hint()
	}
	newLeaf := ws.Tree.NewLeaf(windowID)
	nodeID, err := ws.Tree.Insert(target, pos, hint, newLeaf)
	if err != nil {
		return Result{}, fmt.Errorf("dome: toggle float: %w", err)
	}
	e.world.setWorkspaceFocus(mon, ws, nodeID)
	return Result{
		Plans: []WorkspacePlan{e.planFor(mon, ws)},
		Focus: layout.FocusIntent{Window: windowID, Valid: true},
	}, nil
}

// WindowAt resolves which managed window, if any, currently occupies the
// given point in screen space. Ties are broken by z-order (a focused
// float beats an unfocused float beats a tiled leaf), matching the
// stacking order layout.ApplyFloats produces.
func (e *Executor) WindowAt(point geometry.Point) (tree.WindowId, bool) {
	for _, mon := range e.world.Monitors {
		if !mon.WorkArea.Contains(point) {
			continue
		}
		plan := e.planFor(mon, mon.Active()).Plan
		var best tree.WindowId
		bestZ := -1
		found := false
		for win, wl := range plan.Windows {
			if !wl.Visible || !wl.Rect.Contains(point) {
				continue
			}
			if wl.ZOrder > bestZ {
				best, bestZ, found = win, wl.ZOrder, true
			}
		}
		return best, found
	}
	return "", false
}

func (e *Executor) monitorIndex(mon *Monitor) int {
	for i, m := range e.world.Monitors {
		if m == mon {
			return i
		}
	}
	return 0
}

func (e *Executor) workspaceIndex(mon *Monitor, ws *Workspace) int {
	for i, w := range mon.Workspaces {
		if w == ws {
			return i
		}
	}
	return 0
}
