// Package layout turns a container tree into concrete window geometry: a
// Plan mapping each window to a rectangle, visibility, and stacking order.
package layout

import (
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/tree"
)

// Gaps mirrors the inner/outer gap split used when subdividing space
// between siblings and around the workspace's outer edge, plus the global
// sizing knobs a Compute pass needs: the tab bar height reserved atop
// Tabbed containers, the min/max window bounds, and whether automatic
// tiling is enabled (which gates whether a leaf's DesiredSize is honored).
type Gaps struct {
	Inner        float64
	Outer        float64
	TabBarHeight float64

	MinWidth        float64
	MinHeight       float64
	MaxWidth        float64
	MaxHeight       float64
	AutomaticTiling bool
}

// WindowLayout is the geometry assigned to a single window by a Plan.
type WindowLayout struct {
	Rect    geometry.Rect
	Visible bool
	ZOrder  int
}

// Plan is the output of the layout engine: a snapshot of where every
// window in a workspace should be placed, whether it should be shown, and
// in what stacking order.
type Plan struct {
	Windows map[tree.WindowId]WindowLayout
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{Windows: make(map[tree.WindowId]WindowLayout)}
}

// FocusIntent names the window that should receive input focus after a
// plan is applied. Valid is false when no change of focus is implied.
type FocusIntent struct {
	Window tree.WindowId
	Valid  bool
}

// Compute walks the structural tree rooted at root and produces a Plan.
// Split containers divide workArea along their axis according to their
// ratios, with an inner gap between each child. Tabbed containers reserve
// TabBarHeight off the top, give the rest to their active child, and
// record the other children as hidden.
// Leaf rects are also written back onto the leaf itself as LastTiledRect,
// so later auto-tiling and tab-restore decisions have a rect to consult.
func Compute(t *tree.Tree, root tree.NodeId, workArea geometry.Rect, gaps Gaps) *Plan {
	plan := NewPlan()
	workArea = insetOuter(workArea, gaps.Outer)

	var walk func(id tree.NodeId, rect geometry.Rect)
	walk = func(id tree.NodeId, rect geometry.Rect) {
		node, ok := t.Node(id)
		if !ok {
			return
		}
		switch n := node.(type) {
		case *tree.Leaf:
			placed := rect.Inset(gaps.Inner / 2)
			minWidth, minHeight := gaps.MinWidth, gaps.MinHeight
			if n.MinWidth > minWidth {
				minWidth = n.MinWidth
			}
			if n.MinHeight > minHeight {
				minHeight = n.MinHeight
			}
			placed = clampLeafRect(placed, minWidth, minHeight, gaps.MaxWidth, gaps.MaxHeight)
			if !gaps.AutomaticTiling && DesiredSizeFits(n.DesiredSize, placed, minWidth, minHeight, gaps.MaxWidth, gaps.MaxHeight) {
				w := n.DesiredSize.Width.Resolve(placed.Width)
				h := n.DesiredSize.Height.Resolve(placed.Height)
				placed = placed.Centered(w, h)
			}
			n.LastTiledRect = &placed
			plan.Windows[n.Window] = WindowLayout{Rect: placed, Visible: true, ZOrder: 0}
		case *tree.Container:
			if len(n.Children) == 0 {
				return
			}
			if n.Kind == tree.Tabbed {
				tabRect := rect
				tabRect.Y += gaps.TabBarHeight
				tabRect.Height = maxFloat(0, tabRect.Height-gaps.TabBarHeight)
				for i, childID := range n.Children {
					if i == n.ActiveChild {
						walk(childID, tabRect)
					} else {
						hideSubtree(t, childID, plan)
					}
				}
				return
			}
			for i, childRect := range subdivide(n, rect, gaps) {
				walk(n.Children[i], childRect)
			}
		}
	}
	walk(root, workArea)
	return plan
}

func insetOuter(rect geometry.Rect, outer float64) geometry.Rect {
	return geometry.Rect{
		X:      rect.X + outer,
		Y:      rect.Y + outer,
		Width:  maxFloat(0, rect.Width-2*outer),
		Height: maxFloat(0, rect.Height-2*outer),
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// clampLeafRect expands rect to meet a min bound (growing symmetrically,
// which overlaps neighboring cells rather than resizing them: the
// engine does not redistribute the resulting overlap onto siblings) and
// centers it within the cell to respect a max bound. A zero bound is
// treated as unset.
func clampLeafRect(rect geometry.Rect, minWidth, minHeight, maxWidth, maxHeight float64) geometry.Rect {
	if minWidth > 0 && rect.Width < minWidth {
		rect.X -= (minWidth - rect.Width) / 2
		rect.Width = minWidth
	}
	if minHeight > 0 && rect.Height < minHeight {
		rect.Y -= (minHeight - rect.Height) / 2
		rect.Height = minHeight
	}
	if maxWidth > 0 && rect.Width > maxWidth {
		rect.X += (rect.Width - maxWidth) / 2
		rect.Width = maxWidth
	}
	if maxHeight > 0 && rect.Height > maxHeight {
		rect.Y += (rect.Height - maxHeight) / 2
		rect.Height = maxHeight
	}
	return rect
}

// subdivide returns one rect per child of cont, dividing rect along the
// container's axis proportionally to its ratios (falling back to an equal
// split if the ratio count does not match).
func subdivide(cont *tree.Container, rect geometry.Rect, gaps Gaps) []geometry.Rect {
	n := len(cont.Children)
	if n == 0 {
		return nil
	}
	axis := cont.Kind.Axis()
	total := rect.Width
	if axis == geometry.Vertical {
		total = rect.Height
	}
	available := total - gaps.Inner*float64(n-1)
	if available < 0 {
		available = 0
	}

	ratios := cont.Ratios
	if len(ratios) != n {
		ratios = equalSplit(n)
	}

	out := make([]geometry.Rect, n)
	cursor := rect.X
	if axis == geometry.Vertical {
		cursor = rect.Y
	}
	for i := 0; i < n; i++ {
		size := available * ratios[i]
		r := rect
		if axis == geometry.Horizontal {
			r.X = cursor
			r.Width = size
		} else {
			r.Y = cursor
			r.Height = size
		}
		out[i] = r
		cursor += size + gaps.Inner
	}
	return out
}

func equalSplit(n int) []float64 {
	out := make([]float64, n)
	share := 1.0 / float64(n)
	for i := range out {
		out[i] = share
	}
	return out
}

// hideSubtree records every leaf beneath id as hidden, at its last known
// tiled rect, so a backend can still restore its geometry when the tab
// holding it is reselected.
func hideSubtree(t *tree.Tree, id tree.NodeId, plan *Plan) {
	node, ok := t.Node(id)
	if !ok {
		return
	}
	switch n := node.(type) {
	case *tree.Leaf:
		plan.Windows[n.Window] = WindowLayout{Rect: rectOrZero(n.LastTiledRect), Visible: false}
	case *tree.Container:
		for _, c := range n.Children {
			hideSubtree(t, c, plan)
		}
	}
}

func rectOrZero(r *geometry.Rect) geometry.Rect {
	if r == nil {
		return geometry.Rect{}
	}
	return *r
}

// ApplyFloats overlays floating leaves onto an already-computed tiled
// plan. floats must already be in creation order; ApplyFloats does not
// reorder them. Z-order: 1 for every float, 2 for focused (the
// workspace's currently focused leaf, when it is itself a float) — both
// above every tiled leaf's constant 0.
func ApplyFloats(plan *Plan, t *tree.Tree, floats []tree.NodeId, workArea geometry.Rect, focused tree.NodeId, hasFocus bool) {
	for _, id := range floats {
		leaf, ok := t.Leaf(id)
		if !ok {
			continue
		}
		z := 1
		if hasFocus && id == focused {
			z = 2
		}
		plan.Windows[leaf.Window] = WindowLayout{
			Rect:    leaf.FloatRect.ClampTo(workArea),
			Visible: true,
			ZOrder:  z,
		}
	}
}

// Fullscreen builds a plan that shows only target at monitorRect and hides
// every other leaf reachable from root, at its last known tiled rect.
func Fullscreen(t *tree.Tree, root tree.NodeId, monitorRect geometry.Rect, target tree.WindowId) *Plan {
	plan := NewPlan()
	for _, id := range t.Leaves(root) {
		leaf, ok := t.Leaf(id)
		if !ok {
			continue
		}
		if leaf.Window == target {
			plan.Windows[leaf.Window] = WindowLayout{Rect: monitorRect, Visible: true, ZOrder: 1}
		} else {
			plan.Windows[leaf.Window] = WindowLayout{Rect: rectOrZero(leaf.LastTiledRect), Visible: false}
		}
	}
	return plan
}

// DesiredSizeFits reports whether a leaf's desired size lies within the
// configured min/max bounds for a reference rect, the condition under
// which automatic tiling yields to an explicit per-window size request.
func DesiredSizeFits(d *tree.DesiredSize, reference geometry.Rect, minWidth, minHeight, maxWidth, maxHeight float64) bool {
	if d == nil {
		return false
	}
	w := d.Width.Resolve(reference.Width)
	h := d.Height.Resolve(reference.Height)
	if w < minWidth || h < minHeight {
		return false
	}
	if maxWidth > 0 && w > maxWidth {
		return false
	}
	if maxHeight > 0 && h > maxHeight {
		return false
	}
	return true
}
