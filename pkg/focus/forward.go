package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// ClearGlobalFocusOwner removes focus from the current owner permanently.
// The focused and active windows are unchanged.
func (c *Coordinator) ClearGlobalFocusOwner() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.clearOwnerLocked(false)
}

func (c *Coordinator) clearOwnerLocked(temporary bool) {
	owner := c.state.Actual.FocusOwner
	if owner == component.NoNode {
		return
	}
	if ws, ok := c.tree.Window(c.state.Actual.FocusedWindow); ok {
		ws.CurrentFocusOwner = component.NoNode
	}
	c.post([]event.Event{event.Focus(event.FocusLost, owner, component.NoNode, temporary)})
}

// revalidateLocked forwards focus away from the actual owner when it no
// longer qualifies. excluded nodes are treated as gone.
func (c *Coordinator) revalidateLocked(excluded map[component.NodeID]bool) {
	owner := c.state.Actual.FocusOwner
	if owner == component.NoNode {
		return
	}
	if c.tree.Accepted(owner) && !excluded[owner] {
		return
	}
	c.forwardLocked(owner, excluded)
}

// forwardLocked moves focus to the component after from in its cycle,
// ascending to enclosing cycles when a cycle has no other candidate. When
// every enclosing cycle is exhausted the owner is cleared.
func (c *Coordinator) forwardLocked(from component.NodeID, excluded map[component.NodeID]bool) {
	pos := from
	for root := c.cycleRootForLocked(from); root != component.NoNode; root = c.tree.CycleRootOf(root) {
		if root == from {
			continue
		}
		p := c.policyLocked(root)
		if to := c.walkLocked(root, pos, from, p.ComponentAfter, excluded); to != component.NoNode {
			telemetry.RecordForward(telemetry.ForwardMoved)
			_ = c.logger.Debug(logging.CategoryTraversal, "forward.moved", "", map[string]any{
				"from": from.String(),
				"to":   to.String(),
			})
			return
		}
		pos = root
	}
	c.clearOwnerLocked(false)
	telemetry.RecordForward(telemetry.ForwardCleared)
	_ = c.logger.Warn(logging.CategoryTraversal, "forward.cleared", "", map[string]any{"from": from.String()})
}

type stepFunc func(t *component.Tree, root, current component.NodeID) component.NodeID

// walkLocked steps through root's cycle from start, requesting each
// candidate until one is granted. It stops when the walk returns to stop or
// revisits a node, so it always terminates.
func (c *Coordinator) walkLocked(root, start, stop component.NodeID, step stepFunc, excluded map[component.NodeID]bool) component.NodeID {
	seen := make(map[component.NodeID]bool)
	for cand := step(c.tree, root, start); cand != component.NoNode && cand != stop && !seen[cand]; cand = step(c.tree, root, cand) {
		seen[cand] = true
		if excluded[cand] {
			continue
		}
		if c.requestLocked(cand, FocusRequest{}) {
			return cand
		}
	}
	return component.NoNode
}
