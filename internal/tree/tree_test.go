package tree

import (
	"testing"

	"github.com/dome-wm/dome/internal/geometry"
)

func sumRatios(r []float64) float64 {
	total := 0.0
	for _, v := range r {
		total += v
	}
	return total
}

func TestInsertIntoEmptyRoot(t *testing.T) {
	tr, root := NewTree()
	leaf := &Leaf{Window: "w1"}
	id, err := tr.Insert(root, Into, HintSplitH, leaf)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	cont, _ := tr.Container(root)
	if len(cont.Children) != 1 || cont.Children[0] != id {
		t.Fatalf("expected root to contain the new leaf, got %+v", cont.Children)
	}
	if cont.Kind != SplitH {
		t.Fatalf("expected root kind SplitH, got %v", cont.Kind)
	}
	if got := sumRatios(cont.Ratios); got < 0.999 || got > 1.001 {
		t.Fatalf("ratios must sum to 1, got %v", got)
	}
}

func TestInsertAfterSplitsNeighborShare(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)

	l2 := &Leaf{Window: "w2"}
	_, err := tr.Insert(id1, After, HintSplitH, l2)
	if err != nil {
		t.Fatalf("insert after: %v", err)
	}
	cont, _ := tr.Container(root)
	if len(cont.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(cont.Children))
	}
	if got := sumRatios(cont.Ratios); got < 0.999 || got > 1.001 {
		t.Fatalf("ratios must sum to 1 after insertion, got %v", got)
	}
	if cont.Ratios[0] != cont.Ratios[1] {
		t.Fatalf("expected equal split of two children, got %v", cont.Ratios)
	}
}

func TestInsertBeforeWrapsWhenKindDiffers(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)

	l2 := &Leaf{Window: "w2"}
	id2, err := tr.Insert(id1, Before, HintSplitV, l2)
	if err != nil {
		t.Fatalf("insert before: %v", err)
	}
	// root should now contain a single child: a new SplitV container
	// wrapping [l2, l1].
	rootCont, _ := tr.Container(root)
	if len(rootCont.Children) != 1 {
		t.Fatalf("expected root to have 1 child (the wrapper), got %d", len(rootCont.Children))
	}
	wrapperID := rootCont.Children[0]
	wrapper, ok := tr.Container(wrapperID)
	if !ok || wrapper.Kind != SplitV {
		t.Fatalf("expected a SplitV wrapper container")
	}
	if len(wrapper.Children) != 2 || wrapper.Children[0] != id2 || wrapper.Children[1] != id1 {
		t.Fatalf("expected wrapper children [l2, l1], got %+v", wrapper.Children)
	}
}

func TestRemoveCascadesEmptyAncestor(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	id2, _ := tr.Insert(id1, Before, HintSplitV, l2)

	rootCont, _ := tr.Container(root)
	wrapperID := rootCont.Children[0]

	if err := tr.Remove(id2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// wrapper now has a single child (id1) of a different kind than its
	// own (SplitV wrapper, SplitH-less leaf child) so it stays; but since
	// leaf children never match a container kind, collapse does not
	// apply here. Removing the remaining leaf should cascade the wrapper
	// away entirely.
	if err := tr.Remove(id1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rootCont, _ = tr.Container(root)
	if len(rootCont.Children) != 0 {
		t.Fatalf("expected root emptied after cascading removal, got %+v", rootCont.Children)
	}
	if _, ok := tr.Node(wrapperID); ok {
		t.Fatalf("expected wrapper container to be removed from the arena")
	}
}

func TestRemoveKeepsUnaryNestingOfDifferentKind(t *testing.T) {
	tr, root := NewTree()
	// Build a SplitH root holding [a, SplitV wrapper [b, c]], then remove a
	// so root is left with a single child of a different kind.
	a := &Leaf{Window: "a"}
	idA, _ := tr.Insert(root, Into, HintSplitH, a)
	b := &Leaf{Window: "b"}
	idB, _ := tr.Insert(idA, After, HintSplitH, b)
	c := &Leaf{Window: "c"}
	_, _ = tr.Insert(idB, After, HintSplitV, c) // wraps idB into a SplitV containing [idB, c]

	rootCont, _ := tr.Container(root)
	if len(rootCont.Children) != 2 {
		t.Fatalf("expected root to have 2 children (a, wrapper), got %d", len(rootCont.Children))
	}
	wrapperID := rootCont.Children[1]

	// Now remove `a`, leaving root with a single child: the SplitV wrapper.
	// Root is SplitH and wrapper is SplitV, so no collapse should occur.
	if err := tr.Remove(idA); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rootCont, _ = tr.Container(root)
	if len(rootCont.Children) != 1 || rootCont.Children[0] != wrapperID {
		t.Fatalf("expected root's only child to remain the SplitV wrapper, got %+v", rootCont.Children)
	}
	if rootCont.Kind == tr.mustContainer(wrapperID).Kind {
		t.Fatalf("root and wrapper unexpectedly share a kind, collapse test is meaningless")
	}
}

func (t *Tree) mustContainer(id NodeId) *Container {
	c, ok := t.Container(id)
	if !ok {
		panic("not a container")
	}
	return c
}

func TestToggleLayoutRoundTrips(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	_, _ = tr.Insert(id1, After, HintSplitH, l2)

	if err := tr.ToggleLayout(root); err != nil {
		t.Fatalf("toggle to tabbed: %v", err)
	}
	cont, _ := tr.Container(root)
	if cont.Kind != Tabbed || cont.Ratios != nil {
		t.Fatalf("expected tabbed with no ratios, got kind=%v ratios=%v", cont.Kind, cont.Ratios)
	}

	if err := tr.ToggleLayout(root); err != nil {
		t.Fatalf("toggle back to split: %v", err)
	}
	cont, _ = tr.Container(root)
	if cont.Kind != SplitH {
		t.Fatalf("expected toggle to restore SplitH, got %v", cont.Kind)
	}
	if got := sumRatios(cont.Ratios); got < 0.999 || got > 1.001 {
		t.Fatalf("ratios must sum to 1 after restoring split, got %v", got)
	}
}

func TestMoveNodeSwapsWithinMatchingAxis(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	id2, _ := tr.Insert(id1, After, HintSplitH, l2)

	res, err := tr.MoveNode(id1, geometry.Right)
	if err != nil {
		t.Fatalf("move_node: %v", err)
	}
	if res.Escaped {
		t.Fatalf("expected swap within root, not an escape")
	}
	cont, _ := tr.Container(root)
	if cont.Children[0] != id2 || cont.Children[1] != id1 {
		t.Fatalf("expected children swapped, got %+v", cont.Children)
	}
}

func TestMoveNodeEscapesAtBoundary(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	_, _ = tr.Insert(id1, After, HintSplitH, l2)

	res, err := tr.MoveNode(id1, geometry.Left)
	if err != nil {
		t.Fatalf("move_node: %v", err)
	}
	if !res.Escaped {
		t.Fatalf("expected move off the leftmost child of the root to escape")
	}
}

func TestFocusMoveDescendsActiveChild(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	lx := &Leaf{Window: "wx"}
	idX, _ := tr.Insert(id1, After, HintSplitH, lx)

	// wrapping idX in a tabbed group makes that group root's second
	// child, with id1 left as root's first child.
	l2 := &Leaf{Window: "w2"}
	_, _ = tr.Insert(idX, After, HintTabbed, l2)
	rootCont, _ := tr.Container(root)
	if len(rootCont.Children) != 2 {
		t.Fatalf("setup: expected root to have 2 children, got %+v", rootCont.Children)
	}
	groupID := rootCont.Children[1]
	l3 := &Leaf{Window: "w3"}
	id3, _ := tr.Insert(groupID, Into, HintTabbed, l3)

	group, _ := tr.Container(groupID)
	group.ActiveChild = indexOf(group.Children, id3)

	res, err := tr.FocusMove(id1, geometry.Right)
	if err != nil {
		t.Fatalf("focus_move: %v", err)
	}
	if res.Target != id3 {
		t.Fatalf("expected focus_move to land on the active tab (id3=%d), got %d", id3, res.Target)
	}
}

func TestCycleTabWrapsAround(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintTabbed, l1)
	l2 := &Leaf{Window: "w2"}
	_, _ = tr.Insert(id1, After, HintTabbed, l2)

	cont, _ := tr.Container(root)
	cont.ActiveChild = 0

	leaf, ok := tr.CycleTab(id1, false)
	if !ok {
		t.Fatalf("expected a tabbed ancestor to be found")
	}
	cont, _ = tr.Container(root)
	if cont.ActiveChild != 1 || leaf != cont.Children[1] {
		t.Fatalf("expected backward cycle from index 0 to wrap to the last tab, got active=%d", cont.ActiveChild)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)

	clone := tr.Clone()
	l2 := &Leaf{Window: "w2"}
	if _, err := clone.Insert(id1, After, HintSplitH, l2); err != nil {
		t.Fatalf("insert into clone: %v", err)
	}

	origCont, _ := tr.Container(root)
	cloneCont, _ := clone.Container(root)
	if len(origCont.Children) == len(cloneCont.Children) {
		t.Fatalf("expected clone mutation not to affect the original tree")
	}
}

func TestPromoteHoistsOneLevel(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	id2, _ := tr.Insert(id1, After, HintSplitV, l2)

	rootCont, _ := tr.Container(root)
	if len(rootCont.Children) != 1 {
		t.Fatalf("setup: expected single wrapper child under root")
	}

	if err := tr.Promote(id2); err != nil {
		t.Fatalf("promote: %v", err)
	}
	rootCont, _ = tr.Container(root)
	if len(rootCont.Children) != 2 {
		t.Fatalf("expected id2 promoted to be a direct child of root, got %+v", rootCont.Children)
	}
}

func TestLeavesTraversal(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)
	l2 := &Leaf{Window: "w2"}
	id2, _ := tr.Insert(id1, After, HintSplitH, l2)

	leaves := tr.Leaves(root)
	if len(leaves) != 2 || leaves[0] != id1 || leaves[1] != id2 {
		t.Fatalf("expected leaves [id1, id2], got %+v", leaves)
	}
}

func TestFindLeafByWindow(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "target"}
	id1, _ := tr.Insert(root, Into, HintSplitH, l1)

	found, ok := tr.FindLeafByWindow("target")
	if !ok || found != id1 {
		t.Fatalf("expected to find leaf by window id")
	}
	if _, ok := tr.FindLeafByWindow("missing"); ok {
		t.Fatalf("expected no match for unknown window id")
	}
}

func TestAutoInsertHonorsContainerSpawnKindOverAspectRatio(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintSplitV, l1)

	// l1's LastTiledRect is wide, which the aspect heuristic alone would
	// read as "split horizontally" -- but root remembers SplitV from its
	// own creation, and that memory must win under HintAuto.
	wide := geometry.Rect{X: 0, Y: 0, Width: 2000, Height: 100}
	l1.LastTiledRect = &wide

	l2 := &Leaf{Window: "w2"}
	_, err := tr.Insert(id1, After, HintAuto, l2)
	if err != nil {
		t.Fatalf("insert after: %v", err)
	}
	cont, _ := tr.Container(root)
	if cont.Kind != SplitV {
		t.Fatalf("expected root to stay SplitV per its remembered spawn kind, got %v", cont.Kind)
	}
}

func TestAutoInsertFallsBackToAspectRatioWithNoMemory(t *testing.T) {
	tr, root := NewTree()
	l1 := &Leaf{Window: "w1"}
	id1, _ := tr.Insert(root, Into, HintTabbed, l1)

	tall := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 2000}
	l1.LastTiledRect = &tall

	l2 := &Leaf{Window: "w2"}
	_, err := tr.Insert(id1, After, HintAuto, l2)
	if err != nil {
		t.Fatalf("insert after: %v", err)
	}
	// root is Tabbed, which carries no remembered split axis, so the
	// wrap-or-extend path falls to the aspect heuristic: tall -> SplitV.
	rootCont, _ := tr.Container(root)
	wrapperID := rootCont.Children[0]
	wrapper, ok := tr.Container(wrapperID)
	if !ok || wrapper.Kind != SplitV {
		t.Fatalf("expected a SplitV wrapper chosen by aspect ratio, got %+v", wrapper)
	}
}
