package tree

import (
	"fmt"

	"github.com/dome-wm/dome/internal/geometry"
)

// Tree is an arena of nodes addressed by NodeId, with a parallel map of
// child->parent edges. There is deliberately no parent pointer stored on
// the nodes themselves: cyclic structures are awkward to clone, and every
// mutation below already has the parent id in hand before it needs it.
type Tree struct {
	nodes   map[NodeId]Node
	parents map[NodeId]NodeId
	nextID  uint64
}

// NewTree returns an empty arena and the id of a fresh, parentless root
// container. A Tree always has at least this one container; it is never
// removed, only emptied.
func NewTree() (*Tree, NodeId) {
	t := &Tree{
		nodes:   make(map[NodeId]Node),
		parents: make(map[NodeId]NodeId),
	}
	root := &Container{}
	rootID := t.allocate(root)
	return t, rootID
}

func (t *Tree) allocate(n Node) NodeId {
	t.nextID++
	id := NodeId(t.nextID)
	switch v := n.(type) {
	case *Leaf:
		v.id = id
	case *Container:
		v.id = id
	}
	t.nodes[id] = n
	return id
}

// NewContainer allocates an empty, unparented container of the given kind.
// Callers are responsible for inserting it somewhere with AppendChild or
// assigning it as a workspace root.
func (t *Tree) NewContainer(kind ContainerKind) NodeId {
	return t.allocate(&Container{Kind: kind})
}

// NewLeaf allocates an unparented leaf wrapping window. Callers must place
// it with Insert before it is reachable from a root.
func (t *Tree) NewLeaf(window WindowId) *Leaf {
	leaf := &Leaf{Window: window}
	t.allocate(leaf)
	return leaf
}

// Node looks up a node by id.
func (t *Tree) Node(id NodeId) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Leaf looks up a node by id, asserting it is a leaf.
func (t *Tree) Leaf(id NodeId) (*Leaf, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	l, ok := n.(*Leaf)
	return l, ok
}

// Container looks up a node by id, asserting it is a container.
func (t *Tree) Container(id NodeId) (*Container, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	c, ok := n.(*Container)
	return c, ok
}

// Parent returns the parent of id, or ok=false if id is a root.
func (t *Tree) Parent(id NodeId) (NodeId, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// IsRoot reports whether id has no recorded parent.
func (t *Tree) IsRoot(id NodeId) bool {
	_, ok := t.parents[id]
	return !ok
}

func indexOf(children []NodeId, target NodeId) int {
	for i, c := range children {
		if c == target {
			return i
		}
	}
	return -1
}

func equalRatios(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	share := 1.0 / float64(n)
	for i := range out {
		out[i] = share
	}
	return out
}

// splitRatios returns a new ratio slice of length len(ratios)+1 with a slot
// for idx, taking its share from an adjacent neighbor's ratio so the total
// remains 1 (ratios are preserved across insertion by splitting the
// neighbor's share rather than renormalizing every sibling).
func splitRatios(ratios []float64, idx int) []float64 {
	n := len(ratios)
	out := make([]float64, n+1)
	if n == 0 {
		out[0] = 1.0
		return out
	}
	neighbor := idx - 1
	if neighbor < 0 {
		neighbor = idx
	}
	if neighbor >= n {
		neighbor = n - 1
	}
	share := ratios[neighbor] / 2
	copy(out[:idx], ratios[:idx])
	out[idx] = share
	copy(out[idx+1:], ratios[idx:])
	if idx-1 >= 0 {
		out[idx-1] = share
	} else {
		out[idx+1] = share
	}
	return out
}

// removeRatio drops the ratio at idx and renormalizes the remainder to sum
// to 1.
func removeRatio(ratios []float64, idx int) []float64 {
	if idx < 0 || idx >= len(ratios) {
		return ratios
	}
	out := make([]float64, 0, len(ratios)-1)
	out = append(out, ratios[:idx]...)
	out = append(out, ratios[idx+1:]...)
	return normalizeRatios(out)
}

func normalizeRatios(r []float64) []float64 {
	if len(r) == 0 {
		return r
	}
	sum := 0.0
	for _, v := range r {
		sum += v
	}
	if sum <= 0 {
		share := 1.0 / float64(len(r))
		for i := range r {
			r[i] = share
		}
		return r
	}
	for i := range r {
		r[i] /= sum
	}
	return r
}

// spliceChild inserts child into cont.Children at idx, updating ratios for
// split kinds and leaving Tabbed kinds without a ratio array.
func (t *Tree) spliceChild(cont *Container, idx int, child NodeId) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(cont.Children) {
		idx = len(cont.Children)
	}
	children := make([]NodeId, 0, len(cont.Children)+1)
	children = append(children, cont.Children[:idx]...)
	children = append(children, child)
	children = append(children, cont.Children[idx:]...)
	if cont.Kind != Tabbed {
		cont.Ratios = splitRatios(cont.Ratios, idx)
	}
	cont.Children = children
	t.parents[child] = cont.id
}

func (t *Tree) replaceChild(cont *Container, old, replacement NodeId) {
	idx := indexOf(cont.Children, old)
	if idx < 0 {
		return
	}
	cont.Children[idx] = replacement
	t.parents[replacement] = cont.id
}

// AppendChild attaches an already-allocated, still-unparented node as the
// new last child of parent, becoming the active child. It exists for
// callers that build a subtree in isolation (NewContainer plus a few
// Insert calls against that container directly) and only need to splice
// the finished subtree into the structural tree once, rather than going
// through Insert's wrap-or-extend sibling semantics.
func (t *Tree) AppendChild(parent, child NodeId) error {
	cont, ok := t.Container(parent)
	if !ok {
		return fmt.Errorf("tree: append_child: parent %d is not a container", parent)
	}
	if _, hasParent := t.parents[child]; hasParent {
		return fmt.Errorf("tree: append_child: child %d already has a parent", child)
	}
	t.spliceChild(cont, len(cont.Children), child)
	cont.ActiveChild = len(cont.Children) - 1
	return nil
}

// resolveKind turns a KindHint into a concrete ContainerKind. HintAuto
// prefers parent's remembered SpawnKind first (the container's own
// recollection of how it was last split), then falls back to near's last
// tiled rect (wide rects split horizontally, tall ones vertically), and
// finally to parent's current kind with a horizontal default. A caller
// carrying an explicit global override skips HintAuto entirely and
// passes the concrete hint instead, which always wins.
func (t *Tree) resolveKind(hint KindHint, parent *Container, near *Leaf) ContainerKind {
	if kind, ok := kindFromHint(hint); ok {
		return kind
	}
	if parent != nil && parent.hasSpawnKind {
		return parent.SpawnKind
	}
	if near != nil && near.LastTiledRect != nil {
		r := *near.LastTiledRect
		if r.Width > r.Height {
			return SplitH
		}
		return SplitV
	}
	if parent != nil && parent.Kind == SplitV {
		return SplitV
	}
	return SplitH
}

// Insert places leaf relative to target. Into requires target to be a
// container and adds leaf as its new active child. Before/After treat
// target as a sibling reference: if target's parent already has the
// resolved kind, leaf is spliced in as a sibling directly; otherwise
// target is wrapped in a fresh container of the resolved kind alongside
// leaf (wrap-or-extend).
func (t *Tree) Insert(target NodeId, pos Position, hint KindHint, leaf *Leaf) (NodeId, error) {
	targetNode, ok := t.nodes[target]
	if !ok {
		return 0, fmt.Errorf("tree: insert: unknown target %d", target)
	}
	// A leaf from NewLeaf is already in the arena; keep its id rather than
	// allocating a second one for the same node.
	leafID := leaf.id
	if existing, ok := t.nodes[leafID]; !ok || existing != Node(leaf) {
		leafID = t.allocate(leaf)
	}

	if pos == Into {
		cont, ok := targetNode.(*Container)
		if !ok {
			return 0, fmt.Errorf("tree: insert: target %d is not a container", target)
		}
		kind := t.resolveKind(hint, cont, nil)
		if len(cont.Children) == 0 {
			cont.Kind = kind
			if kind != Tabbed {
				cont.SpawnKind = kind
				cont.hasSpawnKind = true
			}
		}
		idx := cont.ActiveChild + 1
		if idx > len(cont.Children) {
			idx = len(cont.Children)
		}
		t.spliceChild(cont, idx, leafID)
		cont.ActiveChild = idx
		return leafID, nil
	}

	parentID, hasParent := t.parents[target]
	if !hasParent {
		return 0, fmt.Errorf("tree: insert: node %d has no parent to insert beside", target)
	}
	parent, ok := t.nodes[parentID].(*Container)
	if !ok {
		return 0, fmt.Errorf("tree: insert: parent %d is not a container", parentID)
	}

	var nearLeaf *Leaf
	if l, ok := targetNode.(*Leaf); ok {
		nearLeaf = l
	}
	resolved := t.resolveKind(hint, parent, nearLeaf)

	if parent.Kind == resolved {
		idx := indexOf(parent.Children, target)
		if idx < 0 {
			return 0, fmt.Errorf("tree: insert: target %d not found in parent %d", target, parentID)
		}
		insertIdx := idx
		if pos == After {
			insertIdx = idx + 1
		}
		t.spliceChild(parent, insertIdx, leafID)
		parent.ActiveChild = insertIdx
		return leafID, nil
	}

	newContainer := &Container{Kind: resolved}
	if resolved != Tabbed {
		newContainer.SpawnKind = resolved
		newContainer.hasSpawnKind = true
	}
	newID := t.allocate(newContainer)
	var order []NodeId
	if pos == Before {
		order = []NodeId{leafID, target}
	} else {
		order = []NodeId{target, leafID}
	}
	newContainer.Children = order
	if resolved != Tabbed {
		newContainer.Ratios = equalRatios(len(order))
	}
	newContainer.ActiveChild = indexOf(order, leafID)
	t.parents[target] = newID
	t.parents[leafID] = newID
	t.replaceChild(parent, target, newID)
	return leafID, nil
}

func (t *Tree) deleteSubtree(id NodeId) {
	if cont, ok := t.nodes[id].(*Container); ok {
		for _, child := range cont.Children {
			t.deleteSubtree(child)
		}
	}
	delete(t.nodes, id)
	delete(t.parents, id)
}

// Remove deletes node (and, if it is a container, its whole subtree) from
// the tree. If node is itself a rootless container, it is left in place
// but emptied, since a workspace root is never removed. Removing a node
// cascades: an ancestor container left with zero children is itself
// removed, and one left with a single child of the same split kind is
// collapsed into that child.
func (t *Tree) Remove(node NodeId) error {
	parentID, hasParent := t.parents[node]
	if !hasParent {
		cont, ok := t.nodes[node].(*Container)
		if !ok {
			return fmt.Errorf("tree: remove: node %d has no parent and is not a container root", node)
		}
		for _, child := range cont.Children {
			t.deleteSubtree(child)
		}
		cont.Children = nil
		cont.Ratios = nil
		cont.ActiveChild = 0
		return nil
	}

	t.deleteSubtree(node)
	parent, ok := t.nodes[parentID].(*Container)
	if !ok {
		return fmt.Errorf("tree: remove: parent %d is not a container", parentID)
	}
	idx := indexOf(parent.Children, node)
	if idx < 0 {
		return fmt.Errorf("tree: remove: node %d not found among parent's children", node)
	}
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if parent.Kind != Tabbed {
		parent.Ratios = removeRatio(parent.Ratios, idx)
	}
	switch {
	case parent.ActiveChild >= len(parent.Children):
		parent.ActiveChild = len(parent.Children) - 1
		if parent.ActiveChild < 0 {
			parent.ActiveChild = 0
		}
	case parent.ActiveChild > idx:
		parent.ActiveChild--
	}
	return t.fixupAfterRemoval(parentID)
}

func (t *Tree) fixupAfterRemoval(containerID NodeId) error {
	cont, ok := t.nodes[containerID].(*Container)
	if !ok {
		return nil
	}
	if len(cont.Children) == 0 {
		if t.IsRoot(containerID) {
			return nil
		}
		return t.Remove(containerID)
	}
	if len(cont.Children) == 1 && cont.Kind != Tabbed {
		if child, ok := t.nodes[cont.Children[0]].(*Container); ok && child.Kind == cont.Kind {
			t.hoistInto(cont, child)
		}
	}
	return nil
}

// hoistInto absorbs child's children directly into parent, used to collapse
// a unary nesting of two same-kind split containers into one.
func (t *Tree) hoistInto(parent *Container, child *Container) {
	for _, gc := range child.Children {
		t.parents[gc] = parent.id
	}
	parent.Children = child.Children
	parent.Ratios = child.Ratios
	parent.ActiveChild = child.ActiveChild
	delete(t.nodes, child.id)
	delete(t.parents, child.id)
}

// Promote hoists node one level up, making it a sibling of its former
// parent within the grandparent. Returns an error if node is a root or its
// parent is a root (there is no grandparent to promote into).
func (t *Tree) Promote(node NodeId) error {
	parentID, ok := t.parents[node]
	if !ok {
		return fmt.Errorf("tree: promote: node %d is a root", node)
	}
	grandParentID, ok := t.parents[parentID]
	if !ok {
		return fmt.Errorf("tree: promote: node %d's parent is the workspace root", node)
	}
	parent, ok := t.nodes[parentID].(*Container)
	if !ok {
		return fmt.Errorf("tree: promote: parent %d is not a container", parentID)
	}
	grandParent, ok := t.nodes[grandParentID].(*Container)
	if !ok {
		return fmt.Errorf("tree: promote: grandparent %d is not a container", grandParentID)
	}

	idx := indexOf(parent.Children, node)
	if idx < 0 {
		return fmt.Errorf("tree: promote: node %d not found in parent %d", node, parentID)
	}
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if parent.Kind != Tabbed {
		parent.Ratios = removeRatio(parent.Ratios, idx)
	}
	if parent.ActiveChild >= len(parent.Children) {
		parent.ActiveChild = len(parent.Children) - 1
		if parent.ActiveChild < 0 {
			parent.ActiveChild = 0
		}
	}

	pIdx := indexOf(grandParent.Children, parentID)
	if pIdx < 0 {
		return fmt.Errorf("tree: promote: parent %d not found in grandparent %d", parentID, grandParentID)
	}
	t.spliceChild(grandParent, pIdx+1, node)
	grandParent.ActiveChild = pIdx + 1

	return t.fixupAfterRemoval(parentID)
}

// ToggleLayout flips a container between Tabbed and its last-used split
// kind (defaulting to SplitH), remembering the split axis across the
// switch so toggling back restores it.
func (t *Tree) ToggleLayout(containerID NodeId) error {
	cont, ok := t.nodes[containerID].(*Container)
	if !ok {
		return fmt.Errorf("tree: toggle_layout: %d is not a container", containerID)
	}
	if cont.Kind == Tabbed {
		cont.Kind = cont.lastSplitKind
		cont.Ratios = equalRatios(len(cont.Children))
	} else {
		cont.lastSplitKind = cont.Kind
		cont.Kind = Tabbed
		cont.Ratios = nil
	}
	return nil
}

// ToggleDirection flips a split container's axis in place (SplitH<->SplitV).
// Tabbed containers are unaffected.
func (t *Tree) ToggleDirection(containerID NodeId) error {
	cont, ok := t.nodes[containerID].(*Container)
	if !ok {
		return fmt.Errorf("tree: toggle_direction: %d is not a container", containerID)
	}
	switch cont.Kind {
	case SplitH:
		cont.Kind = SplitV
	case SplitV:
		cont.Kind = SplitH
	}
	return nil
}

func axisOfKind(kind ContainerKind) geometry.Axis {
	return kind.Axis()
}

// MoveResult reports the outcome of a spatial move or focus-move
// operation. Escaped is set when the operation walked off the top of the
// tree (reached the workspace root without finding room to move),
// signaling the caller to handle monitor- or workspace-crossing.
type MoveResult struct {
	Escaped bool
	Target  NodeId
}

// MoveNode relocates node one step in dir by swapping it with the adjacent
// sibling along the matching split axis. When the nearest matching
// ancestor has no room (node is already extremal), the search continues
// one level up, treating that ancestor itself as the unit being moved.
func (t *Tree) MoveNode(node NodeId, dir geometry.Direction) (MoveResult, error) {
	axis := dir.Axis()
	forward := dir.Forward()
	current := node
	for {
		parentID, ok := t.parents[current]
		if !ok {
			return MoveResult{Escaped: true}, nil
		}
		parent, ok := t.nodes[parentID].(*Container)
		if !ok {
			return MoveResult{}, fmt.Errorf("tree: move_node: parent %d is not a container", parentID)
		}
		if parent.Kind != Tabbed && axisOfKind(parent.Kind) == axis {
			idx := indexOf(parent.Children, current)
			targetIdx := idx
			if forward {
				targetIdx++
			} else {
				targetIdx--
			}
			if targetIdx >= 0 && targetIdx < len(parent.Children) {
				parent.Children[idx], parent.Children[targetIdx] = parent.Children[targetIdx], parent.Children[idx]
				if parent.Ratios != nil {
					parent.Ratios[idx], parent.Ratios[targetIdx] = parent.Ratios[targetIdx], parent.Ratios[idx]
				}
				parent.ActiveChild = targetIdx
				return MoveResult{}, nil
			}
		}
		current = parentID
	}
}

// FocusMove mirrors MoveNode but only shifts a focus candidate: it finds
// the adjacent subtree in dir and descends into it along active-child
// pointers until it reaches a leaf.
func (t *Tree) FocusMove(node NodeId, dir geometry.Direction) (MoveResult, error) {
	axis := dir.Axis()
	forward := dir.Forward()
	current := node
	for {
		parentID, ok := t.parents[current]
		if !ok {
			return MoveResult{Escaped: true}, nil
		}
		parent, ok := t.nodes[parentID].(*Container)
		if !ok {
			return MoveResult{}, fmt.Errorf("tree: focus_move: parent %d is not a container", parentID)
		}
		if parent.Kind != Tabbed && axisOfKind(parent.Kind) == axis {
			idx := indexOf(parent.Children, current)
			targetIdx := idx
			if forward {
				targetIdx++
			} else {
				targetIdx--
			}
			if targetIdx >= 0 && targetIdx < len(parent.Children) {
				return MoveResult{Target: t.descendActive(parent.Children[targetIdx])}, nil
			}
		}
		current = parentID
	}
}

// descendActive walks down from id following ActiveChild pointers until it
// reaches a leaf.
func (t *Tree) descendActive(id NodeId) NodeId {
	for {
		cont, ok := t.nodes[id].(*Container)
		if !ok || len(cont.Children) == 0 {
			return id
		}
		idx := cont.ActiveChild
		if idx < 0 || idx >= len(cont.Children) {
			idx = 0
		}
		id = cont.Children[idx]
	}
}

// ActiveLeaf descends from root along ActiveChild pointers and returns the
// leaf currently at the end of that path, or root itself if root has no
// children yet (an empty workspace).
func (t *Tree) ActiveLeaf(root NodeId) NodeId {
	return t.descendActive(root)
}

// SyncActivePath sets ActiveChild on every ancestor of leaf to point down
// the path toward it, so that Tabbed ancestors show the right tab and
// FocusMove/descendActive land back on leaf from any direction.
func (t *Tree) SyncActivePath(leaf NodeId) {
	child := leaf
	for {
		parentID, ok := t.parents[child]
		if !ok {
			return
		}
		parent, ok := t.nodes[parentID].(*Container)
		if !ok {
			return
		}
		if idx := indexOf(parent.Children, child); idx >= 0 {
			parent.ActiveChild = idx
		}
		child = parentID
	}
}

// CycleTab advances (or retreats) the active child of the nearest Tabbed
// ancestor of node, returning the leaf now focused by that tab switch. ok
// is false if node has no Tabbed ancestor.
func (t *Tree) CycleTab(node NodeId, forward bool) (leaf NodeId, ok bool) {
	current := node
	for {
		parentID, hasParent := t.parents[current]
		if !hasParent {
			return 0, false
		}
		parent, isCont := t.nodes[parentID].(*Container)
		if !isCont {
			return 0, false
		}
		if parent.Kind == Tabbed {
			n := len(parent.Children)
			if n == 0 {
				return 0, false
			}
			idx := parent.ActiveChild
			if forward {
				idx = (idx + 1) % n
			} else {
				idx = (idx - 1 + n) % n
			}
			parent.ActiveChild = idx
			return t.descendActive(parent.Children[idx]), true
		}
		current = parentID
	}
}

// FindLeafByWindow searches the whole arena for the leaf wrapping window.
func (t *Tree) FindLeafByWindow(window WindowId) (NodeId, bool) {
	for id, n := range t.nodes {
		if l, ok := n.(*Leaf); ok && l.Window == window {
			return id, true
		}
	}
	return 0, false
}

// Leaves returns every leaf id reachable from root, in depth-first,
// children-in-order traversal order.
func (t *Tree) Leaves(root NodeId) []NodeId {
	var out []NodeId
	var walk func(NodeId)
	walk = func(id NodeId) {
		switch n := t.nodes[id].(type) {
		case *Leaf:
			out = append(out, id)
		case *Container:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

// Clone deep-copies the tree, including every node, for copy-on-write
// rollback of a tentative command application.
func (t *Tree) Clone() *Tree {
	clone := &Tree{
		nodes:   make(map[NodeId]Node, len(t.nodes)),
		parents: make(map[NodeId]NodeId, len(t.parents)),
		nextID:  t.nextID,
	}
	for id, n := range t.nodes {
		clone.nodes[id] = cloneNode(n)
	}
	for id, p := range t.parents {
		clone.parents[id] = p
	}
	return clone
}

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case *Leaf:
		c := *v
		if v.DesiredSize != nil {
			d := *v.DesiredSize
			c.DesiredSize = &d
		}
		if v.LastTiledRect != nil {
			r := *v.LastTiledRect
			c.LastTiledRect = &r
		}
		return &c
	case *Container:
		c := *v
		c.Children = append([]NodeId(nil), v.Children...)
		c.Ratios = append([]float64(nil), v.Ratios...)
		return &c
	default:
		return n
	}
}
