// Package event defines focus and window events and the Channel that
// delivers them in order on a single consumer goroutine.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/harmony-sub021/pkg/component"
)

// Kind identifies an event.
type Kind uint8

const (
	FocusGained Kind = iota + 1
	FocusLost
	WindowActivated
	WindowDeactivated
	WindowGainedFocus
	WindowLostFocus
)

var kindNames = map[Kind]string{
	FocusGained:       "focus-gained",
	FocusLost:         "focus-lost",
	WindowActivated:   "window-activated",
	WindowDeactivated: "window-deactivated",
	WindowGainedFocus: "window-gained-focus",
	WindowLostFocus:   "window-lost-focus",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown event kind %q", string(b))
	}
	*k = parsed
	return nil
}

// IsFocus reports whether k is a component focus event.
func (k Kind) IsFocus() bool { return k == FocusGained || k == FocusLost }

// IsWindow reports whether k is a window event.
func (k Kind) IsWindow() bool { return k >= WindowActivated && k <= WindowLostFocus }

// Event is one focus or window transition. Source is the component or
// window the event is about; Opposite is the other party of the transfer.
type Event struct {
	ID        string           `json:"id"`
	Seq       uint64           `json:"seq"`
	Kind      Kind             `json:"kind"`
	Source    component.NodeID `json:"source"`
	Opposite  component.NodeID `json:"opposite,omitempty"`
	Temporary bool             `json:"temporary,omitempty"`
	Time      time.Time        `json:"time"`
}

// Focus builds a component focus event.
func Focus(kind Kind, source, opposite component.NodeID, temporary bool) Event {
	return Event{Kind: kind, Source: source, Opposite: opposite, Temporary: temporary}
}

// Window builds a window event.
func Window(kind Kind, window, opposite component.NodeID) Event {
	return Event{Kind: kind, Source: window, Opposite: opposite}
}

// String renders the event without ID or timing, e.g.
// "focus-lost(#3 opposite=#5 temporary)".
func (e Event) String() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteByte('(')
	sb.WriteString(e.Source.String())
	if e.Opposite != component.NoNode {
		sb.WriteString(" opposite=")
		sb.WriteString(e.Opposite.String())
	}
	if e.Temporary {
		sb.WriteString(" temporary")
	}
	sb.WriteByte(')')
	return sb.String()
}
