package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
)

// SetVisible changes a node's visibility. For windows it is Show or Hide.
func (c *Coordinator) SetVisible(id component.NodeID, v bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.tree.Kind(id) == component.KindWindow {
		if v {
			return c.showLocked(id)
		}
		return c.hideLocked(id)
	}
	return c.mutateLocked(func() error { return c.tree.SetVisible(id, v) })
}

// SetEnabled enables or disables a node.
func (c *Coordinator) SetEnabled(id component.NodeID, v bool) error {
	return c.mutate(func() error { return c.tree.SetEnabled(id, v) })
}

// SetFocusable sets a node's explicit focusability.
func (c *Coordinator) SetFocusable(id component.NodeID, v bool) error {
	return c.mutate(func() error { return c.tree.SetFocusable(id, v) })
}

// SetCycleRoot marks a scope as a focus cycle root.
func (c *Coordinator) SetCycleRoot(id component.NodeID, v bool) error {
	return c.mutate(func() error { return c.tree.SetCycleRoot(id, v) })
}

// SetBounds records a node's position for layout-ordered traversal.
func (c *Coordinator) SetBounds(id component.NodeID, r component.Rect) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.tree.SetBounds(id, r)
}

// Attach adds child under parent.
func (c *Coordinator) Attach(parent, child component.NodeID) error {
	return c.mutate(func() error { return c.tree.Attach(parent, child) })
}

// Detach unlinks a subtree. Focus inside it moves on first.
func (c *Coordinator) Detach(id component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.detachLocked(id)
}

// Remove detaches a subtree and frees its nodes. Window bookkeeping that
// names a freed node is cleared, owner links included, so a reused slot is
// never focused or activated by mistake. Windows owned by a removed window
// are left without an activatable owner.
func (c *Coordinator) Remove(id component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.detachLocked(id); err != nil {
		return err
	}
	gone := c.subtreeSet(id)
	for _, w := range c.tree.Windows() {
		ws, _ := c.tree.Window(w)
		if gone[ws.Owner] {
			ws.Owner = component.NoNode
		}
		if gone[ws.MostRecentFocusOwner] {
			ws.MostRecentFocusOwner = component.NoNode
		}
		if gone[ws.RequestedFocus] {
			ws.RequestedFocus = component.NoNode
		}
		if gone[ws.CurrentFocusOwner] {
			ws.CurrentFocusOwner = component.NoNode
		}
	}
	for root := range c.policies {
		if gone[root] {
			delete(c.policies, root)
		}
	}
	if c.tree.Kind(id) == component.KindWindow {
		a := c.state.Actual
		if id == a.FocusedWindow || id == a.ActiveWindow {
			c.dropWindowFocusLocked(false)
		}
	}
	return c.tree.Free(id)
}

func (c *Coordinator) detachLocked(id component.NodeID) error {
	if !c.tree.Exists(id) {
		return c.tree.Detach(id)
	}
	gone := c.subtreeSet(id)
	if gone[c.state.Actual.FocusOwner] {
		c.forwardLocked(c.state.Actual.FocusOwner, gone)
	}
	if err := c.tree.Detach(id); err != nil {
		return err
	}
	if gone[c.state.Actual.CycleRoot] {
		c.setCycleRootLocked(c.state.Actual.FocusedWindow)
	}
	c.revalidateLocked(nil)
	return nil
}

func (c *Coordinator) subtreeSet(id component.NodeID) map[component.NodeID]bool {
	set := make(map[component.NodeID]bool)
	for _, d := range c.tree.Subtree(id) {
		set[d] = true
	}
	return set
}

// mutate applies a tree change and then revalidates the focus owner.
func (c *Coordinator) mutate(fn func() error) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.mutateLocked(fn)
}

func (c *Coordinator) mutateLocked(fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	c.revalidateLocked(nil)
	return nil
}
