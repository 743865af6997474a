package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// NativeWindowActivated handles the platform reporting that window became
// active. A pending request recorded while nothing was active is granted
// first; otherwise the window's most recent owner, then its policy's
// initial component.
func (c *Coordinator) NativeWindowActivated(window component.NodeID) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.activateLocked(window)
}

// NativeWindowDeactivated handles the platform reporting that the
// application lost activation. The permanent owner and each window's most
// recent owner are kept so reactivation can restore them.
func (c *Coordinator) NativeWindowDeactivated(window component.NodeID) {
	c.lock.Lock()
	defer c.lock.Unlock()
	a := c.state.Actual
	if window != a.ActiveWindow && window != a.FocusedWindow {
		_ = c.logger.Debug(logging.CategoryWindow, "deactivate.stale", "", map[string]any{"window": window.String()})
		return
	}
	c.dropWindowFocusLocked(true)
}

// NativeFocusChanged handles the platform moving input focus to target.
func (c *Coordinator) NativeFocusChanged(target component.NodeID) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.requestLocked(target, FocusRequest{CrossWindow: true})
}

func (c *Coordinator) activateLocked(window component.NodeID) bool {
	ws, ok := c.tree.Window(window)
	if !ok || !ws.Displayable || !c.tree.Visible(window) {
		_ = c.logger.Debug(logging.CategoryWindow, "activate.ignored", "window is not showing", map[string]any{
			"window": window.String(),
		})
		return false
	}
	_ = c.logger.Info(logging.CategoryWindow, "activate", "", map[string]any{"window": window.String()})
	if target := c.resolveTargetLocked(window, ws); target != component.NoNode {
		if c.requestLocked(target, FocusRequest{CrossWindow: true}) {
			return true
		}
	}
	return c.focusWindowLocked(window)
}

// resolveTargetLocked picks the component to focus when a window activates.
func (c *Coordinator) resolveTargetLocked(window component.NodeID, ws *component.WindowState) component.NodeID {
	candidates := []component.NodeID{
		ws.RequestedFocus,
		ws.MostRecentFocusOwner,
		c.policyLocked(window).Initial(c.tree, window),
	}
	for _, id := range candidates {
		if id != component.NoNode && c.tree.WindowOf(id) == window && c.tree.Accepted(id) {
			return id
		}
	}
	return component.NoNode
}

// focusWindowLocked makes window the focused window with no focus owner.
func (c *Coordinator) focusWindowLocked(window component.NodeID) bool {
	a := c.state.Actual
	active := c.tree.NearestActivatable(window)
	windowChange := a.FocusedWindow != window
	activeChange := a.ActiveWindow != active
	if !windowChange && !activeChange && a.FocusOwner == component.NoNode {
		return true
	}

	batch := make([]event.Event, 0, 5)
	if activeChange && a.ActiveWindow != component.NoNode {
		batch = append(batch, event.Window(event.WindowDeactivated, a.ActiveWindow, active))
	}
	if windowChange && a.FocusedWindow != component.NoNode {
		batch = append(batch, event.Window(event.WindowLostFocus, a.FocusedWindow, window))
	}
	if a.FocusOwner != component.NoNode {
		batch = append(batch, event.Focus(event.FocusLost, a.FocusOwner, component.NoNode, windowChange))
	}
	if windowChange {
		batch = append(batch, event.Window(event.WindowGainedFocus, window, a.FocusedWindow))
	}
	if activeChange && active != component.NoNode {
		batch = append(batch, event.Window(event.WindowActivated, active, a.ActiveWindow))
	}

	if ows, ok := c.tree.Window(a.FocusedWindow); ok {
		ows.CurrentFocusOwner = component.NoNode
	}
	c.setCycleRootLocked(window)
	c.post(batch)
	return true
}

// dropWindowFocusLocked takes focus away from the focused and active
// windows: Deactivated, WindowLostFocus, then FocusLost. A temporary loss
// keeps the permanent owner.
func (c *Coordinator) dropWindowFocusLocked(temporary bool) {
	a := c.state.Actual
	batch := make([]event.Event, 0, 3)
	if a.ActiveWindow != component.NoNode {
		batch = append(batch, event.Window(event.WindowDeactivated, a.ActiveWindow, component.NoNode))
	}
	if a.FocusedWindow != component.NoNode {
		batch = append(batch, event.Window(event.WindowLostFocus, a.FocusedWindow, component.NoNode))
	}
	if a.FocusOwner != component.NoNode {
		batch = append(batch, event.Focus(event.FocusLost, a.FocusOwner, component.NoNode, temporary))
	}
	if ws, ok := c.tree.Window(a.FocusedWindow); ok {
		ws.CurrentFocusOwner = component.NoNode
	}
	c.post(batch)
}

// Show makes a window displayable and visible and asks the platform to
// activate it. Focus arrives later through NativeWindowActivated.
func (c *Coordinator) Show(window component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.showLocked(window)
}

func (c *Coordinator) showLocked(window component.NodeID) error {
	ws, err := c.tree.MustWindow(window)
	if err != nil {
		return err
	}
	ws.Displayable = true
	if err := c.tree.SetVisible(window, true); err != nil {
		return err
	}
	if ws.FocusableWindowState && !ws.Iconified {
		c.activateNativeLocked(window)
	}
	return nil
}

// Hide makes a window invisible. Focus inside it is forwarded or cleared,
// and the window loses focus and activation if it had them.
func (c *Coordinator) Hide(window component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.hideLocked(window)
}

func (c *Coordinator) hideLocked(window component.NodeID) error {
	if _, err := c.tree.MustWindow(window); err != nil {
		return err
	}
	if err := c.tree.SetVisible(window, false); err != nil {
		return err
	}
	c.windowGoneLocked(window)
	return nil
}

// Dispose hides a window and releases its native resources. The most
// recent focus owner is remembered.
func (c *Coordinator) Dispose(window component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	ws, err := c.tree.MustWindow(window)
	if err != nil {
		return err
	}
	if err := c.tree.SetVisible(window, false); err != nil {
		return err
	}
	ws.Displayable = false
	c.windowGoneLocked(window)
	ws.ResetFocus()
	return nil
}

// windowGoneLocked handles a window that can no longer hold focus.
func (c *Coordinator) windowGoneLocked(window component.NodeID) {
	c.revalidateLocked(nil)
	a := c.state.Actual
	if window != a.FocusedWindow && window != a.ActiveWindow {
		return
	}
	owner := component.NoNode
	if ws, ok := c.tree.Window(window); ok {
		owner = ws.Owner
	}
	c.dropWindowFocusLocked(false)
	if owner != component.NoNode && c.tree.Showing(owner) {
		c.activateNativeLocked(c.tree.NearestActivatable(owner))
	}
}

// SetIconified records the platform minimizing or restoring a window.
func (c *Coordinator) SetIconified(window component.NodeID, v bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	ws, err := c.tree.MustWindow(window)
	if err != nil {
		return err
	}
	ws.Iconified = v
	a := c.state.Actual
	if v && (window == a.FocusedWindow || window == a.ActiveWindow) {
		c.dropWindowFocusLocked(true)
	}
	return nil
}

// SetBlocked marks a window as blocked by a modal dialog.
func (c *Coordinator) SetBlocked(window component.NodeID, v bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	ws, err := c.tree.MustWindow(window)
	if err != nil {
		return err
	}
	ws.Blocked = v
	return nil
}

// SetFocusableWindowState controls whether a window may hold focus. Turning
// it off on the focused window clears the focus owner.
func (c *Coordinator) SetFocusableWindowState(window component.NodeID, v bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	ws, err := c.tree.MustWindow(window)
	if err != nil {
		return err
	}
	ws.FocusableWindowState = v
	if !v && window == c.state.Actual.FocusedWindow {
		c.clearOwnerLocked(false)
	}
	return nil
}

// ToFront asks the platform to activate a showing window.
func (c *Coordinator) ToFront(window component.NodeID) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, err := c.tree.MustWindow(window); err != nil {
		return err
	}
	if c.tree.Showing(window) {
		c.activateNativeLocked(window)
	}
	return nil
}

func (c *Coordinator) activateNativeLocked(window component.NodeID) {
	if window == component.NoNode {
		return
	}
	c.bridge.Activate(window)
	telemetry.RecordNativeCommand(native.CommandActivate)
}
