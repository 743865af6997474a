package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// FocusRequest qualifies a focus request.
type FocusRequest struct {
	// Temporary marks a transfer the application expects to undo, such as
	// focus moving into a popup.
	Temporary bool
	// CrossWindow allows the request to move focus into another window.
	CrossWindow bool
	// ViaPublicAPI is set for application-initiated requests and clear for
	// requests originating in platform notifications.
	ViaPublicAPI bool
}

// RequestFocus is the public cross-window request.
func (c *Coordinator) RequestFocus(target component.NodeID) bool {
	return c.Request(target, FocusRequest{CrossWindow: true, ViaPublicAPI: true})
}

// RequestFocusInWindow is the public request confined to the focused window.
func (c *Coordinator) RequestFocusInWindow(target component.NodeID) bool {
	return c.Request(target, FocusRequest{ViaPublicAPI: true})
}

// Request asks for target to become the focus owner. It returns true when
// the request was granted or target already owns focus. Events describing
// the transfer are queued before Request returns and delivered later on
// the event goroutine.
func (c *Coordinator) Request(target component.NodeID, req FocusRequest) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.requestLocked(target, req)
}

func (c *Coordinator) requestLocked(target component.NodeID, req FocusRequest) bool {
	path := telemetry.PathNative
	if req.ViaPublicAPI {
		path = telemetry.PathPublic
	}
	a := &c.state.Actual
	win := c.tree.WindowOf(target)
	ws, hasWindow := c.tree.Window(win)

	if req.ViaPublicAPI && a.ActiveWindow == component.NoNode {
		if req.CrossWindow && hasWindow {
			ws.RequestedFocus = target
			c.outcome(target, path, telemetry.ResultDeferred, "no active window, request recorded")
			return false
		}
		c.outcome(target, path, telemetry.ResultRefused, "no active window")
		return false
	}
	if !hasWindow {
		c.outcome(target, path, telemetry.ResultRefused, "target is not in a window")
		return false
	}
	if req.ViaPublicAPI && !c.eligibleLocked(win) {
		c.outcome(target, path, telemetry.ResultRefused, "window cannot take focus")
		return false
	}
	if !c.tree.Accepted(target) {
		c.outcome(target, path, telemetry.ResultRefused, "target is not focusable, enabled and showing")
		return false
	}
	if !ws.FocusableWindowState && win != a.FocusedWindow && win != a.ActiveWindow {
		c.outcome(target, path, telemetry.ResultRefused, "window is not focusable")
		return false
	}
	if !req.CrossWindow && win != a.FocusedWindow {
		c.outcome(target, path, telemetry.ResultRefused, "target is outside the focused window")
		return false
	}
	active := c.tree.NearestActivatable(win)
	if active == component.NoNode {
		c.outcome(target, path, telemetry.ResultRefused, "window has no activatable owner")
		return false
	}

	if target == a.FocusOwner && win == a.FocusedWindow && active == a.ActiveWindow {
		ws.RequestedFocus = component.NoNode
		telemetry.RecordFocusRequest(path, telemetry.ResultNoop)
		return true
	}

	oldOwner, oldWindow, oldActive := a.FocusOwner, a.FocusedWindow, a.ActiveWindow
	windowChange := oldWindow != win
	activeChange := oldActive != active

	if req.CrossWindow && windowChange && req.ViaPublicAPI {
		ws.RequestedFocus = target
		c.bridge.SetNativeInputFocus(win)
		telemetry.RecordNativeCommand(native.CommandSetNativeInputFocus)
	}

	batch := make([]event.Event, 0, 6)
	if activeChange && oldActive != component.NoNode {
		batch = append(batch, event.Window(event.WindowDeactivated, oldActive, active))
	}
	if windowChange && oldWindow != component.NoNode {
		batch = append(batch, event.Window(event.WindowLostFocus, oldWindow, win))
	}
	if oldOwner != component.NoNode && oldOwner != target {
		temporary := req.Temporary
		if windowChange && !req.ViaPublicAPI {
			temporary = true
		}
		batch = append(batch, event.Focus(event.FocusLost, oldOwner, target, temporary))
	}
	if windowChange {
		batch = append(batch, event.Window(event.WindowGainedFocus, win, oldWindow))
	}
	if activeChange {
		batch = append(batch, event.Window(event.WindowActivated, active, oldActive))
	}
	batch = append(batch, event.Focus(event.FocusGained, target, oldOwner, req.Temporary))

	if windowChange {
		if ows, ok := c.tree.Window(oldWindow); ok {
			ows.CurrentFocusOwner = component.NoNode
		}
	}
	ws.CurrentFocusOwner = target
	ws.MostRecentFocusOwner = target
	ws.RequestedFocus = component.NoNode
	c.setCycleRootLocked(c.cycleRootForLocked(target))
	c.post(batch)

	telemetry.RecordFocusRequest(path, telemetry.ResultGranted)
	_ = c.logger.Info(logging.CategoryFocus, "request.granted", "", map[string]any{
		"target":    target.String(),
		"previous":  oldOwner.String(),
		"window":    win.String(),
		"temporary": req.Temporary,
		"path":      path,
	})
	return true
}

// eligibleLocked reports whether a window can be the target of a public
// request: displayable, visible, not iconified and not blocked, together
// with the activatable window that would become active.
func (c *Coordinator) eligibleLocked(win component.NodeID) bool {
	for _, w := range []component.NodeID{win, c.tree.NearestActivatable(win)} {
		if w == component.NoNode {
			continue
		}
		ws, ok := c.tree.Window(w)
		if !ok || !ws.Displayable || !c.tree.Visible(w) || ws.Iconified || ws.Blocked {
			return false
		}
	}
	return true
}

// cycleRootForLocked is the cycle traversal from id uses: its nearest cycle
// root ancestor, or id itself when id is a window.
func (c *Coordinator) cycleRootForLocked(id component.NodeID) component.NodeID {
	if root := c.tree.CycleRootOf(id); root != component.NoNode {
		return root
	}
	if c.tree.Kind(id) == component.KindWindow {
		return id
	}
	return component.NoNode
}

func (c *Coordinator) outcome(target component.NodeID, path, result, reason string) {
	telemetry.RecordFocusRequest(path, result)
	_ = c.logger.Debug(logging.CategoryFocus, "request."+result, reason, map[string]any{
		"target": target.String(),
		"path":   path,
	})
}
