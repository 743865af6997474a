// Package component holds the toolkit's node tree: leaves, scopes, and
// windows stored in an arena and addressed by NodeID. Parent links are plain
// indices, so the tree carries no reference cycles.
//
// A Tree is not safe for concurrent use on its own. Every read and write
// happens while the toolkit Lock is held.
package component

import (
	"fmt"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

// NodeID addresses a node in a Tree. The zero value, NoNode, means "none".
type NodeID uint32

// NoNode is the absent node.
const NoNode NodeID = 0

// Valid reports whether id names a node at all (not whether it still exists).
func (id NodeID) Valid() bool { return id != NoNode }

func (id NodeID) String() string {
	if id == NoNode {
		return "none"
	}
	return fmt.Sprintf("#%d", uint32(id))
}

// Kind is the closed set of node variants.
type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindScope
	KindWindow
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindScope:
		return "scope"
	case KindWindow:
		return "window"
	default:
		return "unknown"
	}
}

// Rect is a node's bounds in its window's coordinate space.
type Rect struct {
	X, Y, W, H int
}

type node struct {
	id       NodeID
	kind     Kind
	name     string
	parent   NodeID
	children []NodeID

	focusable    bool
	focusableSet bool
	visible      bool
	enabled      bool
	cycleRoot    bool
	bounds       Rect

	window *WindowState
}

// Tree is the arena. Slot 0 is reserved so NodeID zero stays NoNode.
type Tree struct {
	nodes []*node
	free  []NodeID
	count int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: []*node{nil}}
}

func (t *Tree) alloc(n *node) NodeID {
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		n.id = id
		t.nodes[id] = n
	} else {
		n.id = NodeID(len(t.nodes))
		t.nodes = append(t.nodes, n)
	}
	t.count++
	return n.id
}

func (t *Tree) get(id NodeID) *node {
	if id == NoNode || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) must(id NodeID) (*node, error) {
	n := t.get(id)
	if n == nil {
		return nil, herrors.New(herrors.ErrCodeUnknownNode, "no such node").WithContext("node", id.String())
	}
	return n, nil
}

// NewLeaf creates a detached leaf. Leaves are focusable by default.
func (t *Tree) NewLeaf(name string) NodeID {
	return t.alloc(&node{kind: KindLeaf, name: name, focusable: true, visible: true, enabled: true})
}

// NewScope creates a detached scope. Scopes are not traversal candidates
// themselves unless SetFocusable marks them explicitly.
func (t *Tree) NewScope(name string) NodeID {
	return t.alloc(&node{kind: KindScope, name: name, visible: true, enabled: true})
}

// NewWindow creates a hidden, non-displayable window. Windows are always
// focus cycle roots.
func (t *Tree) NewWindow(name string, kind WindowKind, owner NodeID) (NodeID, error) {
	if owner != NoNode {
		o, err := t.must(owner)
		if err != nil {
			return NoNode, err
		}
		if o.kind != KindWindow {
			return NoNode, herrors.New(herrors.ErrCodeWrongKind, "window owner must be a window").
				WithContext("owner", owner.String())
		}
	}
	return t.alloc(&node{
		kind:      KindWindow,
		name:      name,
		enabled:   true,
		cycleRoot: true,
		window: &WindowState{
			Kind:                 kind,
			Owner:                owner,
			FocusableWindowState: true,
		},
	}), nil
}

// Exists reports whether id names a live node.
func (t *Tree) Exists(id NodeID) bool { return t.get(id) != nil }

// Len returns the number of live nodes.
func (t *Tree) Len() int { return t.count }

// Kind returns the node's variant, or zero for an unknown id.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.get(id); n != nil {
		return n.kind
	}
	return 0
}

// Name returns the node's debug name.
func (t *Tree) Name(id NodeID) string {
	if n := t.get(id); n != nil {
		return n.name
	}
	return ""
}

// Lookup finds the first live node with the given name.
func (t *Tree) Lookup(name string) (NodeID, bool) {
	for _, n := range t.nodes {
		if n != nil && n.name == name {
			return n.id, true
		}
	}
	return NoNode, false
}

// Parent returns the containing node, NoNode for roots.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.get(id); n != nil {
		return n.parent
	}
	return NoNode
}

// Children returns a copy of the ordered child list.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.get(id)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Attach appends child to parent. Windows cannot be attached. Attaching a
// node under itself or under one of its descendants fails with TREE_CYCLE,
// checked before ALREADY_ATTACHED; otherwise a child that already has a
// parent must be detached first.
func (t *Tree) Attach(parent, child NodeID) error {
	p, err := t.must(parent)
	if err != nil {
		return err
	}
	c, err := t.must(child)
	if err != nil {
		return err
	}
	if p.kind == KindLeaf {
		return herrors.New(herrors.ErrCodeWrongKind, "leaves cannot contain children").
			WithContext("parent", parent.String())
	}
	if c.kind == KindWindow {
		return herrors.New(herrors.ErrCodeWrongKind, "windows are roots").
			WithContext("child", child.String())
	}
	if t.IsAncestor(child, parent) {
		return herrors.New(herrors.ErrCodeTreeCycle, "attach would create a cycle").
			WithContext("parent", parent.String()).
			WithContext("child", child.String())
	}
	if c.parent != NoNode {
		return herrors.New(herrors.ErrCodeAttached, "node already has a parent").
			WithContext("child", child.String()).
			WithContext("parent", c.parent.String())
	}
	c.parent = parent
	p.children = append(p.children, child)
	return nil
}

// Detach unlinks id from its parent. Detaching a root is a no-op.
func (t *Tree) Detach(id NodeID) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	if n.parent == NoNode {
		return nil
	}
	p := t.get(n.parent)
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = NoNode
	return nil
}

// Free detaches id and releases the whole subtree's slots. Window state
// elsewhere that still names a freed id goes stale and is rejected lazily.
func (t *Tree) Free(id NodeID) error {
	if err := t.Detach(id); err != nil {
		return err
	}
	for _, d := range t.Subtree(id) {
		t.nodes[d] = nil
		t.free = append(t.free, d)
		t.count--
	}
	return nil
}

// Subtree returns id and all its descendants in pre-order.
func (t *Tree) Subtree(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(cur NodeID) {
		n := t.get(cur)
		if n == nil {
			return
		}
		out = append(out, cur)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(id)
	return out
}

// IsAncestor reports whether anc is id or one of id's ancestors.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur != NoNode; cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// Root returns the topmost ancestor of id.
func (t *Tree) Root(id NodeID) NodeID {
	cur := id
	for {
		p := t.Parent(cur)
		if p == NoNode {
			return cur
		}
		cur = p
	}
}

// SetVisible changes the node's own visibility flag.
func (t *Tree) SetVisible(id NodeID, v bool) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	n.visible = v
	return nil
}

// Visible returns the node's own visibility flag.
func (t *Tree) Visible(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.visible
}

// SetEnabled changes the enabled flag.
func (t *Tree) SetEnabled(id NodeID, v bool) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	n.enabled = v
	return nil
}

// Enabled returns the node's own enabled flag.
func (t *Tree) Enabled(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.enabled
}

// SetFocusable sets focusability explicitly, overriding the kind default.
func (t *Tree) SetFocusable(id NodeID, v bool) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	n.focusable = v
	n.focusableSet = true
	return nil
}

// Focusable returns the explicit or inherited focusability.
func (t *Tree) Focusable(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.focusable
}

// FocusableSet reports whether focusability was set explicitly.
func (t *Tree) FocusableSet(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.focusableSet
}

// SetCycleRoot marks a scope as a focus cycle root. Windows always are.
func (t *Tree) SetCycleRoot(id NodeID, v bool) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	switch n.kind {
	case KindWindow:
		if !v {
			return herrors.New(herrors.ErrCodeWrongKind, "windows are always focus cycle roots").
				WithContext("node", id.String())
		}
	case KindLeaf:
		return herrors.New(herrors.ErrCodeWrongKind, "only scopes can be focus cycle roots").
			WithContext("node", id.String())
	}
	n.cycleRoot = v
	return nil
}

// IsCycleRoot reports whether id is a focus cycle root.
func (t *Tree) IsCycleRoot(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.cycleRoot
}

// SetBounds records the layout collaborator's geometry.
func (t *Tree) SetBounds(id NodeID, r Rect) error {
	n, err := t.must(id)
	if err != nil {
		return err
	}
	n.bounds = r
	return nil
}

// Bounds returns the last recorded geometry.
func (t *Tree) Bounds(id NodeID) Rect {
	if n := t.get(id); n != nil {
		return n.bounds
	}
	return Rect{}
}

// Displayable reports whether id sits under a window with live native
// resources.
func (t *Tree) Displayable(id NodeID) bool {
	root := t.get(t.Root(id))
	return root != nil && root.window != nil && root.window.Displayable
}

// Showing reports whether id and every ancestor are visible and the root is
// a displayable window.
func (t *Tree) Showing(id NodeID) bool {
	if t.get(id) == nil {
		return false
	}
	cur := id
	for {
		n := t.get(cur)
		if !n.visible {
			return false
		}
		if n.parent == NoNode {
			return n.window != nil && n.window.Displayable
		}
		cur = n.parent
	}
}

// Accepted reports whether id currently qualifies to hold focus:
// focusable, enabled, and showing.
func (t *Tree) Accepted(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.focusable && n.enabled && t.Showing(id)
}

// WindowOf returns the window at the root of id's tree, or NoNode when id is
// detached from any window.
func (t *Tree) WindowOf(id NodeID) NodeID {
	root := t.Root(id)
	if n := t.get(root); n != nil && n.kind == KindWindow {
		return root
	}
	return NoNode
}

// CycleRootOf returns the nearest proper ancestor of id that is a focus
// cycle root.
func (t *Tree) CycleRootOf(id NodeID) NodeID {
	for cur := t.Parent(id); cur != NoNode; cur = t.Parent(cur) {
		if t.IsCycleRoot(cur) {
			return cur
		}
	}
	return NoNode
}
