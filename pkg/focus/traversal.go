package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// FocusNextComponent moves focus to the component after from in its cycle.
// NoNode means the current focus owner, or the focused window's first
// component when nothing owns focus.
func (c *Coordinator) FocusNextComponent(from component.NodeID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.traverseLocked(from, true)
}

// FocusPreviousComponent moves focus to the component before from.
func (c *Coordinator) FocusPreviousComponent(from component.NodeID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.traverseLocked(from, false)
}

func (c *Coordinator) traverseLocked(from component.NodeID, forward bool) bool {
	if from == component.NoNode {
		from = c.state.Actual.FocusOwner
	}
	if from == component.NoNode {
		win := c.state.Actual.FocusedWindow
		if win == component.NoNode {
			return false
		}
		p := c.policyLocked(win)
		target := p.First(c.tree, win)
		if !forward {
			target = p.Last(c.tree, win)
		}
		return target != component.NoNode && c.requestLocked(target, FocusRequest{})
	}

	root := c.cycleRootForLocked(from)
	if root == component.NoNode || root == from {
		return false
	}
	p := c.policyLocked(root)
	step := p.ComponentAfter
	if !forward {
		step = p.ComponentBefore
	}
	// A single-member cycle steps back onto from, which is an idempotent grant.
	if next := step(c.tree, root, from); next == from {
		return c.requestLocked(from, FocusRequest{})
	}
	to := c.walkLocked(root, from, from, step, nil)
	_ = c.logger.Debug(logging.CategoryTraversal, "traverse", "", map[string]any{
		"from":    from.String(),
		"to":      to.String(),
		"forward": forward,
	})
	return to != component.NoNode
}

// UpFocusCycle moves traversal one cycle outward. Inside a window's own
// cycle the window's default component is focused, or the window itself
// with no owner when nothing in it can take focus. Otherwise the enclosing
// cycle becomes current and the inner cycle root itself is focused when it
// can be, else the enclosing cycle's default component. The current cycle
// root only changes when focus moves.
func (c *Coordinator) UpFocusCycle(from component.NodeID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if from == component.NoNode {
		from = c.state.Actual.FocusOwner
	}
	root := c.cycleRootForLocked(from)
	if root == component.NoNode {
		return false
	}
	if c.tree.Kind(root) == component.KindWindow {
		d := c.policyLocked(root).Default(c.tree, root)
		if d == component.NoNode {
			return root == c.state.Actual.FocusedWindow && c.focusWindowLocked(root)
		}
		return c.enterCycleLocked(root, d)
	}
	outer := c.cycleRootForLocked(root)
	if outer == component.NoNode {
		return false
	}
	if c.tree.Accepted(root) && c.enterCycleLocked(outer, root) {
		return true
	}
	return c.enterCycleLocked(outer, c.policyLocked(outer).Default(c.tree, outer))
}

// DownFocusCycle makes root the current cycle and focuses its default
// component. Nothing changes when no component in root can take focus.
func (c *Coordinator) DownFocusCycle(root component.NodeID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if root == component.NoNode {
		root = c.state.Actual.FocusOwner
	}
	if !c.tree.IsCycleRoot(root) {
		return false
	}
	return c.enterCycleLocked(root, c.policyLocked(root).Default(c.tree, root))
}

// enterCycleLocked focuses target and, on success, makes root current.
func (c *Coordinator) enterCycleLocked(root, target component.NodeID) bool {
	if target == component.NoNode || !c.requestLocked(target, FocusRequest{}) {
		return false
	}
	c.setCycleRootLocked(root)
	return true
}
