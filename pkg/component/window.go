package component

import herrors "github.com/apache/harmony-sub021/pkg/errors"

// WindowKind distinguishes activatable top-levels from plain owned windows.
type WindowKind uint8

const (
	// WindowPlain cannot be active itself; activation goes to its nearest
	// activatable owner.
	WindowPlain WindowKind = iota
	WindowFrame
	WindowDialog
)

func (k WindowKind) String() string {
	switch k {
	case WindowFrame:
		return "frame"
	case WindowDialog:
		return "dialog"
	default:
		return "window"
	}
}

// Activatable reports whether the platform can make this kind active.
func (k WindowKind) Activatable() bool {
	return k == WindowFrame || k == WindowDialog
}

// WindowState is the activation unit's bookkeeping.
type WindowState struct {
	Kind  WindowKind
	Owner NodeID

	FocusableWindowState bool
	Displayable          bool
	Iconified            bool
	// Blocked is set while a modal dialog blocks input to this window.
	Blocked bool

	CurrentFocusOwner    NodeID
	MostRecentFocusOwner NodeID
	// RequestedFocus is a pending target, granted when the window activates.
	RequestedFocus NodeID
}

// ResetFocus clears the bookkeeping dropped on native-resource teardown.
// MostRecentFocusOwner survives so reactivation can restore focus.
func (w *WindowState) ResetFocus() {
	w.CurrentFocusOwner = NoNode
	w.RequestedFocus = NoNode
}

// Window returns the activation state of a window node.
func (t *Tree) Window(id NodeID) (*WindowState, bool) {
	n := t.get(id)
	if n == nil || n.window == nil {
		return nil, false
	}
	return n.window, true
}

// MustWindow is Window with a coded error for the configuration boundary.
func (t *Tree) MustWindow(id NodeID) (*WindowState, error) {
	n, err := t.must(id)
	if err != nil {
		return nil, err
	}
	if n.window == nil {
		return nil, herrors.New(herrors.ErrCodeWrongKind, "not a window").WithContext("node", id.String())
	}
	return n.window, nil
}

// NearestActivatable walks the owner chain from a window to the first
// frame or dialog.
func (t *Tree) NearestActivatable(window NodeID) NodeID {
	seen := 0
	for cur := window; cur != NoNode && seen <= t.count; seen++ {
		ws, ok := t.Window(cur)
		if !ok {
			return NoNode
		}
		if ws.Kind.Activatable() {
			return cur
		}
		cur = ws.Owner
	}
	return NoNode
}

// Windows lists every live window in arena order.
func (t *Tree) Windows() []NodeID {
	var out []NodeID
	for _, n := range t.nodes {
		if n != nil && n.kind == KindWindow {
			out = append(out, n.id)
		}
	}
	return out
}
