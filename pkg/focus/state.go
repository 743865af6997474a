package focus

import (
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
)

// Snapshot is one view of the global focus state.
type Snapshot struct {
	FocusOwner          component.NodeID `json:"focus_owner"`
	PermanentFocusOwner component.NodeID `json:"permanent_focus_owner"`
	FocusedWindow       component.NodeID `json:"focused_window"`
	ActiveWindow        component.NodeID `json:"active_window"`
	CycleRoot           component.NodeID `json:"cycle_root"`
}

// State splits the coordinator's bookkeeping in two.
//
// Actual is updated synchronously when a request is granted, before its
// events are delivered, so a second request never races stale state.
// Visible is updated on the event goroutine just before each event reaches
// listeners, so the public queries agree with the notifications seen so far.
//
// Both halves change only through Snapshot.Apply, fed the same events in the
// same order, which makes Visible equal Actual once the channel is drained.
// CycleRoot is not event-driven and is written to both halves at once.
type State struct {
	Actual  Snapshot `json:"actual"`
	Visible Snapshot `json:"visible"`
}

// Apply folds one event into the snapshot.
func (s *Snapshot) Apply(ev event.Event) {
	switch ev.Kind {
	case event.FocusGained:
		s.FocusOwner = ev.Source
		if !ev.Temporary {
			s.PermanentFocusOwner = ev.Source
		}
	case event.FocusLost:
		if s.FocusOwner == ev.Source {
			s.FocusOwner = component.NoNode
		}
		if !ev.Temporary && s.PermanentFocusOwner == ev.Source {
			s.PermanentFocusOwner = component.NoNode
		}
	case event.WindowGainedFocus:
		s.FocusedWindow = ev.Source
	case event.WindowLostFocus:
		if s.FocusedWindow == ev.Source {
			s.FocusedWindow = component.NoNode
		}
	case event.WindowActivated:
		s.ActiveWindow = ev.Source
	case event.WindowDeactivated:
		if s.ActiveWindow == ev.Source {
			s.ActiveWindow = component.NoNode
		}
	}
}

// ApplyAll folds a batch in order.
func (s *Snapshot) ApplyAll(evs []event.Event) {
	for _, ev := range evs {
		s.Apply(ev)
	}
}
