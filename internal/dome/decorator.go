package dome

import (
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/tree"
)

// WindowBorder is one per-window border the decorator should draw or
// update, in world coordinates matching the window's current rect.
type WindowBorder struct {
	ID        tree.WindowId
	Rect      geometry.Rect
	Color     string
	Thickness float64
}

// TabLabel is one entry of a TabBar, carrying just enough to render a
// clickable/label-only tab; the decorator owns title truncation/styling.
type TabLabel struct {
	ID     tree.WindowId
	Title  string
	Active bool
}

// TabBar is one Tabbed container's chrome: the strip reserved by
// layout.Gaps.TabBarHeight off the top of the container's rect, plus the
// ordered tab labels for its children.
type TabBar struct {
	Rect                  geometry.Rect
	Tabs                  []TabLabel
	BackgroundColor       string
	ActiveBackgroundColor string
}

// DecorationPlan is everything the decorator should be showing for one
// workspace after a command or layout recompute, replacing whatever it
// drew for that workspace previously.
type DecorationPlan struct {
	Borders []WindowBorder
	TabBars []TabBar
}

// Decorator is the abstract seam to the chrome renderer: per-window
// borders and per-container tab bars. Implementations draw overlay
// windows/layers; the dispatcher only ever hands it a full replacement
// plan per workspace, never incremental diffs, so a decorator backend is
// free to redraw from scratch each time.
type Decorator interface {
	// Apply replaces the decoration previously shown for workspaceKey
	// (an opaque identifier the dispatcher controls, stable per
	// monitor+workspace) with plan.
	Apply(workspaceKey string, plan DecorationPlan) error
	// Clear removes any decoration previously shown for workspaceKey,
	// used when a workspace is no longer the active one on its monitor.
	Clear(workspaceKey string) error
	// Close releases any OS resources (overlay windows, GPU contexts)
	// the decorator holds.
	Close() error
}
