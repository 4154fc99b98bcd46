package dome

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dome-wm/dome/internal/command"
	"github.com/dome-wm/dome/internal/config"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/metrics"
	"github.com/dome-wm/dome/internal/rules"
	"github.com/dome-wm/dome/internal/tree"
	"github.com/dome-wm/dome/internal/util"
)

// Platform names which per-platform rule table (config.Config.MacOS vs
// .Windows) a running Dispatcher's config reloads should read from. The
// PlatformBackend implementation itself determines which OS dome is
// running on; domed passes the matching value through at construction.
type Platform int

const (
	PlatformMacOS Platform = iota
	PlatformWindows
)

// backendFailureLimit is how many consecutive ApplyGeometry failures on
// the same window quarantine it from future plans.
const backendFailureLimit = 3

// IpcRequest is one command line received by the IPC server, paired with
// the channel the dispatcher replies on. The reply is always exactly one
// line: "OK" or "ERR: <msg>".
type IpcRequest struct {
	Line  string
	Reply chan<- string
}

// ConfigEvent is the tagged union the config watcher sends on its
// channel: either a successfully reparsed replacement config, or a
// failure that leaves the previous config in place.
type ConfigEvent interface{}

// ConfigReload carries a freshly validated config to apply.
type ConfigReload struct {
	Config *config.Config
}

// ConfigReloadError reports that a reload attempt failed; the dispatcher
// logs it and keeps running on the previous config.
type ConfigReloadError struct {
	Err error
}

// Dispatcher is the single-threaded cooperative event loop: the sole
// mutator of World. PlatformBackend, the IPC server, and the config
// watcher all run on their own goroutines and only ever communicate with
// it by sending values on the channels it selects over.
type Dispatcher struct {
	world     *World
	executor  *Executor
	backend   PlatformBackend
	decorator Decorator
	logger    *util.Logger
	platform  Platform
	metrics   *metrics.Collector

	commands chan IpcRequest
	configEv chan ConfigEvent

	backendFailures map[tree.WindowId]int
	quarantined     map[tree.WindowId]struct{}

	shutdown context.CancelFunc
}

// NewDispatcher wires a Dispatcher around an already-constructed World.
// commands and configEv are owned by the caller (typically cmd/domed),
// which also starts the IPC server and config watcher goroutines that
// feed them. collector may be nil, in which case metrics collection is
// disabled and every record call is a no-op.
func NewDispatcher(world *World, backend PlatformBackend, decorator Decorator, logger *util.Logger, platform Platform, collector *metrics.Collector, commands chan IpcRequest, configEv chan ConfigEvent) *Dispatcher {
	return &Dispatcher{
		world:           world,
		executor:        NewExecutor(world),
		backend:         backend,
		decorator:       decorator,
		logger:          logger,
		platform:        platform,
		metrics:         collector,
		commands:        commands,
		configEv:        configEv,
		backendFailures: make(map[tree.WindowId]int),
		quarantined:     make(map[tree.WindowId]struct{}),
	}
}

// Metrics returns the dispatcher's metrics collector, or nil if none was
// configured.
func (d *Dispatcher) Metrics() *metrics.Collector {
	return d.metrics
}

// metricsLine renders the collector's totals as the single-line payload
// for the "metrics" IPC command; the control protocol carries exactly one
// reply line, so per-command-kind detail stays in logs, not here.
func (d *Dispatcher) metricsLine() string {
	snap := d.metrics.Snapshot()
	if !snap.Enabled {
		return "metrics disabled"
	}
	t := snap.Totals
	return fmt.Sprintf(
		"executed=%d failed=%d rule_matches=%d rules_ignored=%d geometry_failures=%d quarantined=%d",
		t.Executed, t.Failed, t.RuleMatches, t.RulesIgnored, t.GeometryFailures, t.Quarantined,
	)
}

// Run performs the initial monitor enumeration and then loops until ctx
// is cancelled or exit is requested. The returned error is nil only on a
// clean exit.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.shutdown = cancel
	defer cancel()

	monitors, err := d.backend.EnumerateMonitors()
	if err != nil {
		return fmt.Errorf("dome: enumerate monitors: %w", err)
	}
	d.applyMonitorSnapshot(monitors)
	if d.world.Config != nil {
		d.registerChords(nil, d.world.Config.Chords)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.backend.Events():
			if !ok {
				return fmt.Errorf("dome: backend event stream closed")
			}
			d.trace("backend.event", ev)
			d.handleBackendEvent(ev)
		case req, ok := <-d.commands:
			if !ok {
				continue
			}
			d.handleCommandRequest(ctx, req)
		case cev, ok := <-d.configEv:
			if !ok {
				continue
			}
			d.handleConfigEvent(cev)
		}
	}
}

func (d *Dispatcher) trace(event string, payload any) {
	if d.logger == nil {
		return
	}
	d.logger.Tracef("%s %+v", event, payload)
}

func (d *Dispatcher) handleBackendEvent(ev BackendEvent) {
	switch e := ev.(type) {
	case WindowCreated:
		d.handleWindowCreated(e)
	case WindowDestroyed:
		d.handleWindowDestroyed(e)
	case WindowFocused:
		d.handleWindowFocused(e)
	case WindowMoved:
		d.handleWindowMoved(e)
	case MonitorsChanged:
		d.applyMonitorSnapshot(e.Monitors)
	case KeyChord:
		d.handleKeyChord(e)
	default:
		d.logger.Warnf("dome: unrecognized backend event %T", ev)
	}
}

func (d *Dispatcher) handleWindowCreated(e WindowCreated) {
	if d.world.Rules != nil {
		eval := d.world.Rules.Evaluate(e.Meta)
		for _, decision := range eval.Trace {
			if decision.Matched {
				d.metrics.RecordRuleMatch(decision.Table == "ignore")
			}
		}
		if eval.Ignore {
			d.world.Rules.MarkIgnored(e.ID)
			d.trace("window.ignored", e.ID)
			return
		}
		if _, err := d.world.InsertWindow(e.ID); err != nil {
			d.logger.Errorf("dome: insert window %s: %v", e.ID, err)
			return
		}
		d.applyFocusedWorkspacePlan()
		d.runOnOpenCommands(eval.Commands)
		return
	}
	if _, err := d.world.InsertWindow(e.ID); err != nil {
		d.logger.Errorf("dome: insert window %s: %v", e.ID, err)
		return
	}
	d.applyFocusedWorkspacePlan()
}

func (d *Dispatcher) runOnOpenCommands(lines []string) {
	for _, line := range lines {
		cmd, err := command.Parse(line)
		if err != nil {
			d.logger.Warnf("dome: on_open command %q: %v", line, err)
			continue
		}
		if _, err := d.runCommand(cmd); err != nil {
			d.logger.Warnf("dome: on_open command %q failed: %v", line, err)
		}
	}
}

func (d *Dispatcher) handleWindowDestroyed(e WindowDestroyed) {
	if d.world.Rules != nil && d.world.Rules.IsIgnored(e.ID) {
		d.world.Rules.Forget(e.ID)
		return
	}
	monIdx, wsIdx, _, _, ok := d.world.FindWindow(e.ID)
	if !ok {
		return
	}
	if err := d.world.RemoveWindow(e.ID); err != nil {
		d.logger.Errorf("dome: remove window %s: %v", e.ID, err)
		return
	}
	delete(d.backendFailures, e.ID)
	delete(d.quarantined, e.ID)
	mon := d.world.Monitors[monIdx]
	d.applyWorkspacePlan(d.executor.planFor(mon, mon.Workspaces[wsIdx]))
}

func (d *Dispatcher) handleWindowFocused(e WindowFocused) {
	monIdx, wsIdx, node, _, ok := d.world.FindWindow(e.ID)
	if !ok {
		return
	}
	mon := d.world.Monitors[monIdx]
	ws := mon.Workspaces[wsIdx]
	d.world.FocusedMonitor = monIdx
	mon.ActiveWorkspace = wsIdx
	d.world.setWorkspaceFocus(mon, ws, node)
}

func (d *Dispatcher) handleWindowMoved(e WindowMoved) {
	monIdx, wsIdx, node, floating, ok := d.world.FindWindow(e.ID)
	if !ok || !floating {
		return
	}
	ws := d.world.Monitors[monIdx].Workspaces[wsIdx]
	if leaf, ok := ws.Tree.Leaf(node); ok {
		leaf.FloatRect = e.Rect
	}
}

func (d *Dispatcher) handleKeyChord(e KeyChord) {
	if d.world.Config == nil {
		return
	}
	for _, chord := range d.world.Config.Chords {
		if chord.Raw != e.ChordString {
			continue
		}
		for _, line := range chord.Commands {
			cmd, err := command.Parse(line)
			if err != nil {
				d.logger.Warnf("dome: keymap %q: %v", line, err)
				break
			}
			if _, err := d.runCommand(cmd); err != nil {
				d.logger.Warnf("dome: keymap %q command %q failed: %v", chord.Raw, line, err)
				break
			}
		}
		return
	}
}

func (d *Dispatcher) handleCommandRequest(ctx context.Context, req IpcRequest) {
	if req.Line == "metrics" {
		req.Reply <- "OK " + d.metricsLine()
		return
	}
	if strings.HasPrefix(req.Line, "inspect at ") {
		req.Reply <- d.inspectAt(req.Line)
		return
	}
	cmd, err := command.Parse(req.Line)
	if err != nil {
		req.Reply <- "ERR: " + err.Error()
		return
	}
	if _, err := d.runCommand(cmd); err != nil {
		req.Reply <- "ERR: " + err.Error()
		return
	}
	req.Reply <- "OK"
}

// inspectAt answers "inspect at <x> <y>" by resolving the window, if any,
// under that screen-space point.
func (d *Dispatcher) inspectAt(line string) string {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return "ERR: inspect at: want <x> <y>"
	}
	x, errX := strconv.ParseFloat(fields[2], 64)
	y, errY := strconv.ParseFloat(fields[3], 64)
	if errX != nil || errY != nil {
		return "ERR: inspect at: invalid coordinates"
	}
	win, ok := d.executor.WindowAt(geometry.Point{X: x, Y: y})
	if !ok {
		return "OK none"
	}
	return "OK " + string(win)
}

// runCommand executes cmd through the Executor and pushes its effects to
// the backend/decorator, the same pipeline a keymap or on_open command
// goes through.
func (d *Dispatcher) runCommand(cmd command.Command) (Result, error) {
	result, err := d.executor.Execute(cmd)
	d.metrics.RecordCommand(cmd.Kind.String(), err)
	if err != nil {
		return Result{}, err
	}
	for _, plan := range result.Plans {
		d.applyWorkspacePlan(plan)
	}
	if result.Focus.Valid {
		if err := d.backend.Focus(result.Focus.Window); err != nil {
			d.logger.Warnf("dome: focus %s: %v", result.Focus.Window, err)
		}
	}
	for _, effect := range result.SideEffects {
		d.runSideEffect(effect)
	}
	return result, nil
}

func (d *Dispatcher) runSideEffect(effect SideEffect) {
	switch effect.Kind {
	case SideEffectExec:
		cmd := exec.Command("/bin/sh", "-c", effect.Command)
		if err := cmd.Start(); err != nil {
			d.logger.Warnf("dome: exec %q: %v", effect.Command, err)
		}
	case SideEffectExit:
		if d.shutdown != nil {
			d.shutdown()
		}
	}
}

func (d *Dispatcher) handleConfigEvent(cev ConfigEvent) {
	switch e := cev.(type) {
	case ConfigReload:
		previous := d.world.Config
		d.world.Config = e.Config
		ruleEngine, err := rules.Build(d.platformRules(e.Config))
		if err != nil {
			d.logger.Errorf("dome: config reload: rebuild rules: %v", err)
			return
		}
		d.world.Rules = ruleEngine
		var previousChords []config.Chord
		if previous != nil {
			previousChords = previous.Chords
		}
		d.registerChords(previousChords, e.Config.Chords)
		d.recomputeAllWorkspaces()
	case ConfigReloadError:
		d.logger.Warnf("dome: config reload failed, keeping previous config: %v", e.Err)
	default:
		d.logger.Warnf("dome: unrecognized config event %T", cev)
	}
}

// registerChords diffs previous against next by raw chord string, asking
// the backend to unregister whatever dropped out and register whatever is
// new. Unchanged chords are left alone so a reload never causes a visible
// flicker in the platform's key-hook table.
func (d *Dispatcher) registerChords(previous, next []config.Chord) {
	had := make(map[string]struct{}, len(previous))
	for _, c := range previous {
		had[c.Raw] = struct{}{}
	}
	want := make(map[string]struct{}, len(next))
	for _, c := range next {
		want[c.Raw] = struct{}{}
	}
	for raw := range had {
		if _, keep := want[raw]; keep {
			continue
		}
		if err := d.backend.UnregisterKeyChord(raw); err != nil {
			d.logger.Warnf("dome: unregister chord %q: %v", raw, err)
		}
	}
	for raw := range want {
		if _, already := had[raw]; already {
			continue
		}
		if err := d.backend.RegisterKeyChord(raw); err != nil {
			d.logger.Warnf("dome: register chord %q: %v", raw, err)
		}
	}
}

// platformRules picks the platform-specific ignore/on_open table matching
// whichever PlatformBackend domed constructed this Dispatcher with. A
// Dispatcher runs on exactly one platform for its whole lifetime.
func (d *Dispatcher) platformRules(cfg *config.Config) config.PlatformRules {
	if d.platform == PlatformWindows {
		return cfg.Windows
	}
	return cfg.MacOS
}

func (d *Dispatcher) recomputeAllWorkspaces() {
	for _, mon := range d.world.Monitors {
		d.applyWorkspacePlan(d.executor.planFor(mon, mon.Active()))
	}
}

func (d *Dispatcher) applyFocusedWorkspacePlan() {
	mon, ws := d.world.FocusedWorkspace()
	if mon == nil {
		return
	}
	d.applyWorkspacePlan(d.executor.planFor(mon, ws))
}

// applyWorkspacePlan submits geometry and decoration for one workspace's
// freshly computed plan, quarantining any window whose ApplyGeometry call
// fails three times in a row.
func (d *Dispatcher) applyWorkspacePlan(wp WorkspacePlan) {
	borders := make([]WindowBorder, 0, len(wp.Plan.Windows))
	for winID, wl := range wp.Plan.Windows {
		if _, quarantined := d.quarantined[winID]; quarantined {
			continue
		}
		if err := d.backend.ApplyGeometry(winID, wl.Rect, wl.Visible); err != nil {
			d.metrics.RecordGeometryFailure()
			d.backendFailures[winID]++
			if d.backendFailures[winID] >= backendFailureLimit {
				d.quarantined[winID] = struct{}{}
				d.metrics.RecordQuarantine()
				d.logger.Warnf("dome: window %s quarantined after %d consecutive backend failures: %v", winID, d.backendFailures[winID], err)
			} else {
				d.logger.Warnf("dome: apply geometry for %s: %v", winID, err)
			}
			continue
		}
		d.backendFailures[winID] = 0
		if wl.Visible {
			borders = append(borders, WindowBorder{
				ID:        winID,
				Rect:      wl.Rect,
				Color:     d.borderColor(winID),
				Thickness: d.world.Config.BorderSize,
			})
		}
	}
	if d.decorator == nil {
		return
	}
	key := workspaceKey(wp.Monitor, wp.Workspace)
	if err := d.decorator.Apply(key, DecorationPlan{Borders: borders, TabBars: d.tabBars(wp)}); err != nil {
		d.logger.Warnf("dome: apply decoration for %s: %v", key, err)
	}
}

func (d *Dispatcher) borderColor(winID tree.WindowId) string {
	if _, ws, node, ok := d.resolveFocusedNode(); ok {
		if leaf, ok := ws.Tree.Leaf(node); ok && leaf.Window == winID {
			return d.world.Config.FocusedColor
		}
	}
	return d.world.Config.BorderColor
}

func (d *Dispatcher) resolveFocusedNode() (*Monitor, *Workspace, tree.NodeId, bool) {
	ref := d.world.FocusedLeaf
	if ref == nil || ref.Monitor >= len(d.world.Monitors) {
		return nil, nil, 0, false
	}
	mon := d.world.Monitors[ref.Monitor]
	if ref.Workspace >= len(mon.Workspaces) {
		return nil, nil, 0, false
	}
	return mon, mon.Workspaces[ref.Workspace], ref.Node, true
}

// tabBars derives one TabBar per Tabbed container anywhere in wp's tree,
// since those are the only containers whose children need tab chrome
// instead of a border.
func (d *Dispatcher) tabBars(wp WorkspacePlan) []TabBar {
	var bars []TabBar
	var walk func(id tree.NodeId)
	walk = func(id tree.NodeId) {
		node, ok := wp.Workspace.Tree.Node(id)
		if !ok {
			return
		}
		cont, ok := node.(*tree.Container)
		if !ok {
			return
		}
		if cont.Kind == tree.Tabbed {
			bars = append(bars, d.tabBarFor(wp, cont))
		}
		for _, child := range cont.Children {
			walk(child)
		}
	}
	walk(wp.Workspace.Root)
	return bars
}

func (d *Dispatcher) tabBarFor(wp WorkspacePlan, cont *tree.Container) TabBar {
	bar := TabBar{
		BackgroundColor:       d.world.Config.TabBarBackgroundColor,
		ActiveBackgroundColor: d.world.Config.ActiveTabBackgroundColor,
	}
	for i, childID := range cont.Children {
		leaf, ok := wp.Workspace.Tree.Leaf(childID)
		if !ok {
			continue
		}
		wl, ok := wp.Plan.Windows[leaf.Window]
		if !ok {
			continue
		}
		if i == cont.ActiveChild {
			bar.Rect = geometryAboveBar(wl.Rect, d.world.Config.TabBarHeight)
		}
		bar.Tabs = append(bar.Tabs, TabLabel{ID: leaf.Window, Active: i == cont.ActiveChild})
	}
	return bar
}

// geometryAboveBar reconstructs the tab bar's own rect from its active
// child's content rect, by undoing the TabBarHeight reservation Compute
// applied when it laid the child out.
func geometryAboveBar(contentRect geometry.Rect, tabBarHeight float64) geometry.Rect {
	return geometry.Rect{
		X:      contentRect.X,
		Y:      contentRect.Y - tabBarHeight,
		Width:  contentRect.Width,
		Height: tabBarHeight,
	}
}

func workspaceKey(mon *Monitor, ws *Workspace) string {
	return mon.ID + "/" + ws.Name
}

// applyMonitorSnapshot reconciles World.Monitors against a full monitor
// list the backend just reported, creating newly attached displays,
// migrating windows off ones that disappeared, and refreshing the work
// area of ones that are still present but resized.
func (d *Dispatcher) applyMonitorSnapshot(monitors []MonitorInfo) {
	seen := make(map[string]struct{}, len(monitors))
	for _, info := range monitors {
		seen[info.ID] = struct{}{}
		found := false
		for _, mon := range d.world.Monitors {
			if mon.ID == info.ID {
				mon.WorkArea = info.WorkArea
				found = true
				break
			}
		}
		if !found {
			d.world.Monitors = append(d.world.Monitors, NewMonitor(info.ID, info.WorkArea))
		}
	}
	var vanished []string
	for _, mon := range d.world.Monitors {
		if _, ok := seen[mon.ID]; !ok {
			vanished = append(vanished, mon.ID)
		}
	}
	for _, id := range vanished {
		if err := d.world.RemoveMonitor(id); err != nil {
			d.logger.Errorf("dome: remove monitor %s: %v", id, err)
		}
	}
	if len(d.world.Monitors) > 0 && d.world.FocusedMonitor >= len(d.world.Monitors) {
		d.world.FocusedMonitor = 0
	}
	d.recomputeAllWorkspaces()
}
