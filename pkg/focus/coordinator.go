// Package focus implements the focus and activation coordinator: the
// request/grant protocol, window activation, focus traversal and automatic
// forwarding when the focus owner stops qualifying.
package focus

import (
	"sync"

	"github.com/apache/harmony-sub021/pkg/component"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
)

// Manager is the replaceable focus manager installed on a toolkit.
// *Coordinator is the default implementation; custom managers usually embed
// it and override selected methods.
type Manager interface {
	native.Sink

	Request(target component.NodeID, req FocusRequest) bool
	RequestFocus(target component.NodeID) bool
	RequestFocusInWindow(target component.NodeID) bool
	ClearGlobalFocusOwner()

	FocusOwner() component.NodeID
	PermanentFocusOwner() component.NodeID
	FocusedWindow() component.NodeID
	ActiveWindow() component.NodeID
	CurrentFocusCycleRoot() component.NodeID
	State() State

	FocusNextComponent(from component.NodeID) bool
	FocusPreviousComponent(from component.NodeID) bool
	UpFocusCycle(from component.NodeID) bool
	DownFocusCycle(root component.NodeID) bool

	Show(window component.NodeID) error
	Hide(window component.NodeID) error
	Dispose(window component.NodeID) error
	SetIconified(window component.NodeID, v bool) error
	SetBlocked(window component.NodeID, v bool) error
	SetFocusableWindowState(window component.NodeID, v bool) error
	ToFront(window component.NodeID) error

	SetVisible(id component.NodeID, v bool) error
	SetEnabled(id component.NodeID, v bool) error
	SetFocusable(id component.NodeID, v bool) error
	Attach(parent, child component.NodeID) error
	Detach(id component.NodeID) error
	Remove(id component.NodeID) error
}

// Options wires a Coordinator to its collaborators. Zero fields get
// defaults: a fresh tree and lock, an event channel, a no-op bridge,
// container-order traversal and the default key bindings.
type Options struct {
	Tree   *component.Tree
	Lock   *component.Lock
	Events *event.Channel
	Bridge native.Bridge
	Logger *logging.Logger
	Policy Policy
	Keys   Keys
}

// Coordinator owns the global focus state. Every method acquires the
// toolkit lock; the ...Locked helpers expect it held.
type Coordinator struct {
	lock   *component.Lock
	tree   *component.Tree
	events *event.Channel
	bridge native.Bridge
	logger *logging.Logger

	state    State
	policy   Policy
	policies map[component.NodeID]Policy

	keysMu sync.RWMutex
	keys   Keys
}

var _ Manager = (*Coordinator)(nil)

// New builds a coordinator and installs its visible-state hook on the
// event channel.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		lock:     opts.Lock,
		tree:     opts.Tree,
		events:   opts.Events,
		bridge:   opts.Bridge,
		logger:   opts.Logger,
		policy:   opts.Policy,
		policies: make(map[component.NodeID]Policy),
		keys:     opts.Keys,
	}
	if c.lock == nil {
		c.lock = &component.Lock{}
	}
	if c.tree == nil {
		c.tree = component.NewTree()
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	if c.events == nil {
		c.events = event.NewChannel(0, c.logger)
	}
	if c.bridge == nil {
		c.bridge = native.Nop{}
	}
	if c.policy == nil {
		c.policy = ContainerOrder()
	}
	if c.keys == nil {
		c.keys = DefaultKeys()
	}
	c.events.SetApply(c.applyVisible)
	return c
}

// Events returns the channel focus and window events are posted to.
func (c *Coordinator) Events() *event.Channel { return c.events }

// Lock returns the toolkit lock guarding the tree.
func (c *Coordinator) Lock() *component.Lock { return c.lock }

// View runs fn with the lock held. fn must not call coordinator methods.
func (c *Coordinator) View(fn func(t *component.Tree)) {
	c.lock.Do(func() { fn(c.tree) })
}

// applyVisible runs on the event goroutine before listeners.
func (c *Coordinator) applyVisible(ev event.Event) {
	c.lock.Do(func() { c.state.Visible.Apply(ev) })
}

// FocusOwner returns the visible focus owner.
func (c *Coordinator) FocusOwner() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Visible.FocusOwner
}

// PermanentFocusOwner returns the visible permanent focus owner.
func (c *Coordinator) PermanentFocusOwner() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Visible.PermanentFocusOwner
}

// FocusedWindow returns the visible focused window.
func (c *Coordinator) FocusedWindow() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Visible.FocusedWindow
}

// ActiveWindow returns the visible active window.
func (c *Coordinator) ActiveWindow() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Visible.ActiveWindow
}

// CurrentFocusCycleRoot returns the cycle root traversal currently uses.
func (c *Coordinator) CurrentFocusCycleRoot() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Actual.CycleRoot
}

// ActualFocusOwner returns the owner as of the last grant, which may be
// ahead of what listeners have seen.
func (c *Coordinator) ActualFocusOwner() component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state.Actual.FocusOwner
}

// State returns both halves of the focus state.
func (c *Coordinator) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// SetPolicy installs the traversal policy for a cycle root. A nil policy is
// rejected; a NoNode root replaces the default policy.
func (c *Coordinator) SetPolicy(root component.NodeID, p Policy) error {
	if p == nil {
		return herrors.New(herrors.ErrCodeInvalidPolicy, "traversal policy must not be nil").
			WithContext("root", root.String())
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if root == component.NoNode {
		c.policy = p
		return nil
	}
	if c.tree.Kind(root) == component.KindLeaf || !c.tree.Exists(root) {
		return herrors.New(herrors.ErrCodeWrongKind, "traversal policies attach to scopes and windows").
			WithContext("root", root.String())
	}
	c.policies[root] = p
	return nil
}

// PolicyFor returns the policy governing a cycle root.
func (c *Coordinator) PolicyFor(root component.NodeID) Policy {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.policyLocked(root)
}

func (c *Coordinator) policyLocked(root component.NodeID) Policy {
	if p, ok := c.policies[root]; ok {
		return p
	}
	return c.policy
}

// NewLeaf creates a detached leaf.
func (c *Coordinator) NewLeaf(name string) component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.tree.NewLeaf(name)
}

// NewScope creates a detached scope.
func (c *Coordinator) NewScope(name string) component.NodeID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.tree.NewScope(name)
}

// NewWindow creates a hidden window.
func (c *Coordinator) NewWindow(name string, kind component.WindowKind, owner component.NodeID) (component.NodeID, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.tree.NewWindow(name, kind, owner)
}

func (c *Coordinator) setCycleRootLocked(root component.NodeID) {
	c.state.Actual.CycleRoot = root
	c.state.Visible.CycleRoot = root
}

// post folds a batch into the actual state and queues it for delivery.
func (c *Coordinator) post(batch []event.Event) {
	if len(batch) == 0 {
		return
	}
	c.state.Actual.ApplyAll(batch)
	c.events.Post(batch...)
}
