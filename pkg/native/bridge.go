// Package native connects the focus coordinator to a platform windowing
// layer. Outbound commands are fire-and-forget; the platform reports
// results back through a Sink.
package native

import "github.com/apache/harmony-sub021/pkg/component"

// Bridge carries commands from the coordinator to the platform. Calls are
// made with the toolkit lock held and must not block or call back into the
// coordinator synchronously.
//
//go:generate mockgen -source=bridge.go -destination=../focus/mock_bridge_test.go -package=focus
type Bridge interface {
	// Activate asks the platform to make a window active.
	Activate(window component.NodeID)
	// SetNativeInputFocus asks the platform to route keyboard input to a window.
	SetNativeInputFocus(window component.NodeID)
}

// Sink receives platform notifications. The focus coordinator implements it.
type Sink interface {
	NativeWindowActivated(window component.NodeID)
	NativeWindowDeactivated(window component.NodeID)
	NativeFocusChanged(target component.NodeID) bool
}

// Command names used in metrics and on the bus.
const (
	CommandActivate            = "activate"
	CommandSetNativeInputFocus = "set-native-input-focus"
)

// Nop ignores every command.
type Nop struct{}

func (Nop) Activate(component.NodeID)            {}
func (Nop) SetNativeInputFocus(component.NodeID) {}
