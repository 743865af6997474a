package scene

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/harmony-sub021/pkg/component"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/focus"
)

// Builder creates nodes and reaches the event channel. *focus.Coordinator
// implements it.
type Builder interface {
	NewLeaf(name string) component.NodeID
	NewScope(name string) component.NodeID
	NewWindow(name string, kind component.WindowKind, owner component.NodeID) (component.NodeID, error)
	SetCycleRoot(id component.NodeID, v bool) error
	SetBounds(id component.NodeID, r component.Rect) error
	SetPolicy(root component.NodeID, p focus.Policy) error
	ActualFocusOwner() component.NodeID
	Events() *event.Channel
}

// Names maps scene names to node IDs.
type Names map[string]component.NodeID

// NameOf returns the scene name of id, or its "#n" form when unnamed.
func (n Names) NameOf(id component.NodeID) string {
	if id == component.NoNode {
		return noneOwner
	}
	for name, v := range n {
		if v == id {
			return name
		}
	}
	return id.String()
}

// Result is the outcome of a run.
type Result struct {
	Names  Names
	Events []event.Event
	// Failures lists steps whose expect or owner checks did not hold.
	Failures []string
}

// Lines renders the dispatched events with scene names, e.g.
// "focus-lost(a opposite=c temporary)".
func (r *Result) Lines() []string {
	out := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		var sb strings.Builder
		sb.WriteString(ev.Kind.String())
		sb.WriteByte('(')
		sb.WriteString(r.Names.NameOf(ev.Source))
		if ev.Opposite != component.NoNode {
			sb.WriteString(" opposite=")
			sb.WriteString(r.Names.NameOf(ev.Opposite))
		}
		if ev.Temporary {
			sb.WriteString(" temporary")
		}
		sb.WriteByte(')')
		out = append(out, sb.String())
	}
	return out
}

// Passed reports whether every check held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Build creates the scene's windows and nodes and shows the windows not
// marked hidden.
func Build(b Builder, m focus.Manager, s *Scene) (Names, error) {
	names := make(Names)
	for _, w := range s.Windows {
		kind, _ := windowKind(w.Kind)
		id, err := b.NewWindow(w.Name, kind, names[w.Owner])
		if err != nil {
			return nil, err
		}
		names[w.Name] = id
		if w.Focusable != nil {
			if err := m.SetFocusableWindowState(id, *w.Focusable); err != nil {
				return nil, err
			}
		}
		if err := applyPolicy(b, id, w.Policy); err != nil {
			return nil, err
		}
		for _, child := range w.Children {
			if err := buildNode(b, m, names, id, child); err != nil {
				return nil, err
			}
		}
	}
	for _, w := range s.Windows {
		if w.Hidden {
			continue
		}
		if err := m.Show(names[w.Name]); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func buildNode(b Builder, m focus.Manager, names Names, parent component.NodeID, n Node) error {
	var id component.NodeID
	if strings.EqualFold(n.Kind, "scope") {
		id = b.NewScope(n.Name)
	} else {
		id = b.NewLeaf(n.Name)
	}
	names[n.Name] = id
	if err := m.Attach(parent, id); err != nil {
		return err
	}
	if n.CycleRoot {
		if err := b.SetCycleRoot(id, true); err != nil {
			return err
		}
	}
	if n.Focusable != nil {
		if err := m.SetFocusable(id, *n.Focusable); err != nil {
			return err
		}
	}
	if n.Enabled != nil {
		if err := m.SetEnabled(id, *n.Enabled); err != nil {
			return err
		}
	}
	if n.Visible != nil {
		if err := m.SetVisible(id, *n.Visible); err != nil {
			return err
		}
	}
	if n.Bounds != nil {
		if err := b.SetBounds(id, *n.Bounds); err != nil {
			return err
		}
	}
	if err := applyPolicy(b, id, n.Policy); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := buildNode(b, m, names, id, c); err != nil {
			return err
		}
	}
	return nil
}

func applyPolicy(b Builder, root component.NodeID, name string) error {
	if name == "" {
		return nil
	}
	p, err := focus.PolicyByName(name)
	if err != nil {
		return err
	}
	return b.SetPolicy(root, p)
}

// Run builds the scene and replays its steps. Events are dispatched at
// flush steps and once more at the end; when the channel already has a
// consumer Run waits for it instead. Only events dispatched after the build
// are recorded.
func Run(ctx context.Context, b Builder, m focus.Manager, s *Scene) (*Result, error) {
	ch := b.Events()
	names, err := Build(b, m, s)
	if err != nil {
		return nil, err
	}
	if err := drain(ctx, ch); err != nil {
		return nil, err
	}

	res := &Result{Names: names}
	var (
		mu     sync.Mutex
		events []event.Event
	)
	unsubscribe := ch.Subscribe(func(ev event.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsubscribe()

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		granted, reports, err := apply(ctx, m, ch, names, st)
		if err != nil {
			return nil, herrors.Wrap(err, herrors.ErrCodeSceneInvalid, "step failed").
				WithContext("step", i).
				WithContext("op", st.Op)
		}
		if st.Expect != "" && reports {
			if want := st.Expect == "granted"; want != granted {
				res.Failures = append(res.Failures, fmt.Sprintf("step %d %s %s: expected %s", i, st.Op, st.Target, st.Expect))
			}
		}
		if st.Owner != "" {
			if got := names.NameOf(b.ActualFocusOwner()); got != st.Owner {
				res.Failures = append(res.Failures, fmt.Sprintf("step %d %s %s: owner %s, expected %s", i, st.Op, st.Target, got, st.Owner))
			}
		}
	}
	if err := drain(ctx, ch); err != nil {
		return nil, err
	}
	mu.Lock()
	res.Events = events
	mu.Unlock()
	return res, nil
}

// apply runs one step. reports is false for operations without an outcome.
func apply(ctx context.Context, m focus.Manager, ch *event.Channel, names Names, st Step) (granted, reports bool, err error) {
	target := names[st.Target]
	from := func() component.NodeID {
		if target != component.NoNode {
			return target
		}
		return m.State().Actual.FocusOwner
	}
	value := func(def bool) bool {
		if st.Value != nil {
			return *st.Value
		}
		return def
	}

	switch st.Op {
	case OpActivate:
		m.NativeWindowActivated(target)
	case OpDeactivate:
		m.NativeWindowDeactivated(target)
	case OpNativeFocus:
		return m.NativeFocusChanged(target), true, nil
	case OpRequest:
		return m.Request(target, focus.FocusRequest{Temporary: st.Temporary, CrossWindow: true, ViaPublicAPI: true}), true, nil
	case OpRequestInWindow:
		return m.Request(target, focus.FocusRequest{Temporary: st.Temporary, ViaPublicAPI: true}), true, nil
	case OpClear:
		m.ClearGlobalFocusOwner()
	case OpShow:
		err = m.SetVisible(target, true)
	case OpHide:
		err = m.SetVisible(target, false)
	case OpEnable:
		err = m.SetEnabled(target, true)
	case OpDisable:
		err = m.SetEnabled(target, false)
	case OpSetFocusable:
		err = m.SetFocusable(target, value(false))
	case OpDetach:
		err = m.Detach(target)
	case OpRemove:
		err = m.Remove(target)
	case OpNext:
		return m.FocusNextComponent(from()), true, nil
	case OpPrevious:
		return m.FocusPreviousComponent(from()), true, nil
	case OpUpCycle:
		return m.UpFocusCycle(from()), true, nil
	case OpDownCycle:
		return m.DownFocusCycle(target), true, nil
	case OpDispose:
		err = m.Dispose(target)
	case OpIconify:
		err = m.SetIconified(target, value(true))
	case OpToFront:
		err = m.ToFront(target)
	case OpFlush:
		err = drain(ctx, ch)
	}
	return false, false, err
}

func drain(ctx context.Context, ch *event.Channel) error {
	if ch == nil {
		return nil
	}
	if ch.Running() {
		return ch.Flush(ctx)
	}
	ch.DispatchPending()
	return nil
}
