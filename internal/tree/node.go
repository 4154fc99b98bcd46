// Package tree implements the recursive container tree described by the
// core data model: leaves wrapping managed windows, and containers that
// split (horizontally/vertically) or tab their children.
package tree

import "github.com/dome-wm/dome/internal/geometry"

// NodeId identifies a node within a Tree's arena. Ids are assigned
// monotonically and are never reused within the lifetime of a Tree.
type NodeId uint64

// WindowId is an opaque, platform-assigned identifier for a managed
// window. It is stable for the lifetime of the underlying OS window.
type WindowId string

// Node is implemented by the two node variants, Leaf and Container.
// Traversals match exhaustively over the concrete type rather than
// relying on subclassing.
type Node interface {
	NodeID() NodeId
}

// DesiredSize is a leaf's preferred tiled size, honored only when it fits
// between the configured min/max and automatic tiling is disabled.
type DesiredSize struct {
	Width  geometry.Size
	Height geometry.Size
}

// Leaf wraps exactly one managed window.
type Leaf struct {
	id            NodeId
	Window        WindowId
	Floating      bool
	DesiredSize   *DesiredSize
	LastTiledRect *geometry.Rect
	FloatRect     geometry.Rect
	MinWidth      float64
	MinHeight     float64
}

// NodeID implements Node.
func (l *Leaf) NodeID() NodeId { return l.id }

// ContainerKind distinguishes the three container variants.
type ContainerKind int

const (
	SplitH ContainerKind = iota
	SplitV
	Tabbed
)

func (k ContainerKind) String() string {
	switch k {
	case SplitH:
		return "split-horizontal"
	case SplitV:
		return "split-vertical"
	case Tabbed:
		return "tabbed"
	default:
		return "unknown"
	}
}

// Axis returns the layout axis a split container divides along. Tabbed
// containers have no meaningful axis and return Horizontal.
func (k ContainerKind) Axis() geometry.Axis {
	if k == SplitV {
		return geometry.Vertical
	}
	return geometry.Horizontal
}

// Container holds an ordered sequence of children, a kind, and (for split
// kinds) a parallel sequence of ratios.
type Container struct {
	id            NodeId
	Kind          ContainerKind
	lastSplitKind ContainerKind
	Children      []NodeId
	ActiveChild   int
	Ratios        []float64

	// SpawnKind is the kind an Auto insertion under this container
	// prefers, remembered from the kind the container was created or
	// first populated with. hasSpawnKind is false for a container that
	// has never been given an explicit kind (a fresh workspace root),
	// in which case Auto falls through to the aspect-ratio heuristic.
	SpawnKind    ContainerKind
	hasSpawnKind bool
}

// NodeID implements Node.
func (c *Container) NodeID() NodeId { return c.id }

// Position describes where a new node lands relative to a target.
type Position int

const (
	Before Position = iota
	After
	Into
)

// KindHint selects the container kind used when an insertion needs to
// create or match a container kind.
type KindHint int

const (
	HintSplitH KindHint = iota
	HintSplitV
	HintTabbed
	HintAuto
)

func kindFromHint(hint KindHint) (ContainerKind, bool) {
	switch hint {
	case HintSplitH:
		return SplitH, true
	case HintSplitV:
		return SplitV, true
	case HintTabbed:
		return Tabbed, true
	default:
		return 0, false
	}
}
