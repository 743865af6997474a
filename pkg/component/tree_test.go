package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

func shownWindow(t *testing.T, tr *Tree, name string, kind WindowKind, owner NodeID) NodeID {
	t.Helper()
	w, err := tr.NewWindow(name, kind, owner)
	require.NoError(t, err)
	ws, _ := tr.Window(w)
	ws.Displayable = true
	require.NoError(t, tr.SetVisible(w, true))
	return w
}

func TestTree_NoNodeIsZero(t *testing.T) {
	var id NodeID
	assert.Equal(t, NoNode, id)
	assert.False(t, id.Valid())
	assert.Equal(t, "none", id.String())
}

func TestTree_Defaults(t *testing.T) {
	tr := NewTree()
	leaf := tr.NewLeaf("button")
	scope := tr.NewScope("panel")
	win, err := tr.NewWindow("frame", WindowFrame, NoNode)
	require.NoError(t, err)

	assert.True(t, tr.Focusable(leaf), "leaves default to focusable")
	assert.False(t, tr.Focusable(scope), "scopes default to non-focusable")
	assert.False(t, tr.Focusable(win))
	assert.True(t, tr.IsCycleRoot(win), "windows are cycle roots")
	assert.False(t, tr.IsCycleRoot(scope))
	assert.False(t, tr.Visible(win), "windows start hidden")
	assert.Equal(t, 3, tr.Len())
}

func TestTree_AttachRejectsCycles(t *testing.T) {
	tr := NewTree()
	outer := tr.NewScope("outer")
	inner := tr.NewScope("inner")
	require.NoError(t, tr.Attach(outer, inner))

	err := tr.Attach(inner, outer)
	require.Error(t, err)
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeTreeCycle))

	err = tr.Attach(inner, inner)
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeTreeCycle), "self attach of an attached node: %v", err)

	loose := tr.NewScope("loose")
	assert.True(t, herrors.IsCode(tr.Attach(loose, loose), herrors.ErrCodeTreeCycle))

	deep := tr.NewScope("deep")
	require.NoError(t, tr.Attach(inner, deep))
	err = tr.Attach(deep, inner)
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeTreeCycle), "cycle wins over already attached")
}

func TestTree_AttachRules(t *testing.T) {
	tr := NewTree()
	win := shownWindow(t, tr, "w", WindowFrame, NoNode)
	other := shownWindow(t, tr, "w2", WindowFrame, NoNode)
	leaf := tr.NewLeaf("a")
	leaf2 := tr.NewLeaf("b")

	assert.True(t, herrors.IsCode(tr.Attach(leaf, leaf2), herrors.ErrCodeWrongKind))
	assert.True(t, herrors.IsCode(tr.Attach(win, other), herrors.ErrCodeWrongKind))

	require.NoError(t, tr.Attach(win, leaf))
	assert.True(t, herrors.IsCode(tr.Attach(other, leaf), herrors.ErrCodeAttached))
	assert.True(t, herrors.IsCode(tr.Attach(win, NodeID(99)), herrors.ErrCodeUnknownNode))
}

func TestTree_ShowingFollowsAncestors(t *testing.T) {
	tr := NewTree()
	win := shownWindow(t, tr, "w", WindowFrame, NoNode)
	panel := tr.NewScope("panel")
	btn := tr.NewLeaf("btn")
	require.NoError(t, tr.Attach(win, panel))
	require.NoError(t, tr.Attach(panel, btn))

	assert.True(t, tr.Showing(btn))
	assert.True(t, tr.Accepted(btn))

	require.NoError(t, tr.SetVisible(panel, false))
	assert.False(t, tr.Showing(btn))
	assert.False(t, tr.Accepted(btn))

	require.NoError(t, tr.SetVisible(panel, true))
	ws, _ := tr.Window(win)
	ws.Displayable = false
	assert.False(t, tr.Showing(btn), "non-displayable window hides everything")

	detached := tr.NewLeaf("loose")
	assert.False(t, tr.Showing(detached))
}

func TestTree_AcceptedNeedsEnabledAndFocusable(t *testing.T) {
	tr := NewTree()
	win := shownWindow(t, tr, "w", WindowFrame, NoNode)
	btn := tr.NewLeaf("btn")
	require.NoError(t, tr.Attach(win, btn))

	require.NoError(t, tr.SetEnabled(btn, false))
	assert.False(t, tr.Accepted(btn))
	require.NoError(t, tr.SetEnabled(btn, true))
	require.NoError(t, tr.SetFocusable(btn, false))
	assert.False(t, tr.Accepted(btn))
	assert.True(t, tr.FocusableSet(btn))
}

func TestTree_DetachAndFree(t *testing.T) {
	tr := NewTree()
	win := shownWindow(t, tr, "w", WindowFrame, NoNode)
	panel := tr.NewScope("panel")
	a := tr.NewLeaf("a")
	b := tr.NewLeaf("b")
	require.NoError(t, tr.Attach(win, panel))
	require.NoError(t, tr.Attach(panel, a))
	require.NoError(t, tr.Attach(panel, b))

	assert.Equal(t, []NodeID{panel, a, b}, tr.Subtree(panel))
	assert.Equal(t, win, tr.WindowOf(b))

	require.NoError(t, tr.Detach(a))
	assert.Equal(t, []NodeID{b}, tr.Children(panel))
	assert.Equal(t, NoNode, tr.WindowOf(a))

	require.NoError(t, tr.Free(panel))
	assert.False(t, tr.Exists(panel))
	assert.False(t, tr.Exists(b))
	assert.True(t, tr.Exists(a))
	assert.Empty(t, tr.Children(win))

	reused := tr.NewLeaf("c")
	assert.True(t, reused == panel || reused == b, "freed slots are reused")
}

func TestTree_CycleRootOf(t *testing.T) {
	tr := NewTree()
	win := shownWindow(t, tr, "w", WindowFrame, NoNode)
	inner := tr.NewScope("inner")
	leaf := tr.NewLeaf("leaf")
	require.NoError(t, tr.Attach(win, inner))
	require.NoError(t, tr.Attach(inner, leaf))

	assert.Equal(t, win, tr.CycleRootOf(leaf))
	require.NoError(t, tr.SetCycleRoot(inner, true))
	assert.Equal(t, inner, tr.CycleRootOf(leaf))
	assert.Equal(t, win, tr.CycleRootOf(inner))
	assert.Equal(t, NoNode, tr.CycleRootOf(win))

	assert.True(t, herrors.IsCode(tr.SetCycleRoot(leaf, true), herrors.ErrCodeWrongKind))
	assert.True(t, herrors.IsCode(tr.SetCycleRoot(win, false), herrors.ErrCodeWrongKind))
}

func TestTree_NearestActivatable(t *testing.T) {
	tr := NewTree()
	frame := shownWindow(t, tr, "frame", WindowFrame, NoNode)
	popup := shownWindow(t, tr, "popup", WindowPlain, frame)
	nested := shownWindow(t, tr, "nested", WindowPlain, popup)
	orphan := shownWindow(t, tr, "orphan", WindowPlain, NoNode)

	assert.Equal(t, frame, tr.NearestActivatable(frame))
	assert.Equal(t, frame, tr.NearestActivatable(popup))
	assert.Equal(t, frame, tr.NearestActivatable(nested))
	assert.Equal(t, NoNode, tr.NearestActivatable(orphan))

	_, err := tr.NewWindow("bad", WindowPlain, tr.NewLeaf("x"))
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeWrongKind))
}

func TestWindowState_ResetFocusKeepsMostRecent(t *testing.T) {
	ws := &WindowState{CurrentFocusOwner: 3, MostRecentFocusOwner: 3, RequestedFocus: 4}
	ws.ResetFocus()
	assert.Equal(t, NoNode, ws.CurrentFocusOwner)
	assert.Equal(t, NoNode, ws.RequestedFocus)
	assert.Equal(t, NodeID(3), ws.MostRecentFocusOwner)
}

func TestTree_Lookup(t *testing.T) {
	tr := NewTree()
	a := tr.NewLeaf("a")
	got, ok := tr.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, a, got)
	_, ok = tr.Lookup("missing")
	assert.False(t, ok)
}
