package native

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/apache/harmony-sub021/pkg/bus"
	"github.com/apache/harmony-sub021/pkg/component"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// DefaultSubjectPrefix scopes native traffic on the bus.
const DefaultSubjectPrefix = "harmony.native"

// Subject suffixes. Commands flow to the platform, notifications back.
const (
	SubjectActivate    = "activate"
	SubjectFocus       = "focus"
	SubjectActivated   = "activated"
	SubjectDeactivated = "deactivated"
	SubjectFocused     = "focused"
	// SubjectState is request/reply: the platform asks, the toolkit answers
	// with a Report.
	SubjectState = "state"
)

// Message is the JSON payload of every native subject. Node is the window
// for window subjects and the target component for "focused".
type Message struct {
	Toolkit string           `json:"toolkit"`
	Node    component.NodeID `json:"node"`
}

// Report is the reply to a state query: the focus state as listeners have
// seen it.
type Report struct {
	Toolkit       string           `json:"toolkit"`
	FocusOwner    component.NodeID `json:"focus_owner"`
	FocusedWindow component.NodeID `json:"focused_window"`
	ActiveWindow  component.NodeID `json:"active_window"`
}

// Reporter is implemented by sinks that can answer state queries.
type Reporter interface {
	FocusOwner() component.NodeID
	FocusedWindow() component.NodeID
	ActiveWindow() component.NodeID
}

// BusBridge is a Bridge that talks to an out-of-process platform shim over
// a message bus.
type BusBridge struct {
	bus     bus.MessageBus
	prefix  string
	toolkit string
	logger  *logging.Logger

	mu   sync.Mutex
	subs []bus.Subscription
}

// NewBusBridge creates a bridge publishing under prefix. toolkit identifies
// this toolkit instance in payloads; inbound messages for other instances
// are ignored.
func NewBusBridge(b bus.MessageBus, prefix, toolkit string, logger *logging.Logger) *BusBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &BusBridge{bus: b, prefix: prefix, toolkit: toolkit, logger: logger}
}

// Subject returns the full subject for a suffix.
func (b *BusBridge) Subject(suffix string) string {
	return b.prefix + "." + suffix
}

func (b *BusBridge) Activate(window component.NodeID) {
	b.publish(SubjectActivate, window)
}

func (b *BusBridge) SetNativeInputFocus(window component.NodeID) {
	b.publish(SubjectFocus, window)
}

func (b *BusBridge) publish(suffix string, node component.NodeID) {
	data, err := json.Marshal(Message{Toolkit: b.toolkit, Node: node})
	if err == nil {
		err = b.bus.Publish(context.Background(), b.Subject(suffix), data)
	}
	if err != nil {
		_ = b.logger.Error(logging.CategoryNative, "publish.failed", err.Error(), map[string]any{
			"subject": b.Subject(suffix),
			"node":    node.String(),
		})
	}
}

// Attach subscribes to platform notifications and forwards them to sink
// until Close. When sink is also a Reporter, state queries are answered.
func (b *BusBridge) Attach(ctx context.Context, sink Sink) error {
	handlers := map[string]func(component.NodeID){
		SubjectActivated:   sink.NativeWindowActivated,
		SubjectDeactivated: sink.NativeWindowDeactivated,
		SubjectFocused:     func(id component.NodeID) { sink.NativeFocusChanged(id) },
	}
	for suffix, fn := range handlers {
		subject, fn := b.Subject(suffix), fn
		sub, err := b.bus.Subscribe(ctx, subject, func(msg *bus.Message) []byte {
			b.dispatch(msg, fn)
			return nil
		})
		if err != nil {
			_ = b.Close()
			return herrors.Wrap(err, herrors.ErrCodeNativeBridge, "subscribe to native notifications").
				WithContext("subject", subject)
		}
		b.track(sub)
	}
	if r, ok := sink.(Reporter); ok {
		subject := b.Subject(SubjectState)
		sub, err := b.bus.Subscribe(ctx, subject, func(msg *bus.Message) []byte {
			return b.report(msg, r)
		})
		if err != nil {
			_ = b.Close()
			return herrors.Wrap(err, herrors.ErrCodeNativeBridge, "subscribe to state queries").
				WithContext("subject", subject)
		}
		b.track(sub)
	}
	return nil
}

func (b *BusBridge) track(sub bus.Subscription) {
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// report answers a state query. Queries addressed to another toolkit get
// no reply.
func (b *BusBridge) report(msg *bus.Message, r Reporter) []byte {
	var m Message
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			_ = b.logger.Warn(logging.CategoryNative, "decode.failed", err.Error(), map[string]any{"subject": msg.Subject})
			return nil
		}
	}
	if m.Toolkit != "" && b.toolkit != "" && m.Toolkit != b.toolkit {
		return nil
	}
	data, err := json.Marshal(Report{
		Toolkit:       b.toolkit,
		FocusOwner:    r.FocusOwner(),
		FocusedWindow: r.FocusedWindow(),
		ActiveWindow:  r.ActiveWindow(),
	})
	if err != nil {
		return nil
	}
	return data
}

// QueryState asks a toolkit on the bus for its focus state. An empty
// toolkit ID accepts the first toolkit that answers.
func QueryState(ctx context.Context, b bus.MessageBus, prefix, toolkit string, timeout time.Duration) (Report, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	subject := prefix + "." + SubjectState
	query, err := json.Marshal(Message{Toolkit: toolkit})
	if err != nil {
		return Report{}, err
	}
	data, err := b.Request(ctx, subject, query, timeout)
	if err != nil {
		msg := "state query failed"
		switch {
		case errors.Is(err, bus.ErrNoResponders):
			msg = "no toolkit is listening"
		case errors.Is(err, bus.ErrTimeout):
			msg = "no toolkit answered in time"
		}
		return Report{}, herrors.Wrap(err, herrors.ErrCodeNativeBridge, msg).
			WithContext("subject", subject).
			WithContext("toolkit", toolkit)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, herrors.Wrap(err, herrors.ErrCodeNativeBridge, "malformed state reply").
			WithContext("subject", subject)
	}
	return r, nil
}

func (b *BusBridge) dispatch(msg *bus.Message, fn func(component.NodeID)) {
	var m Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		_ = b.logger.Warn(logging.CategoryNative, "decode.failed", err.Error(), map[string]any{"subject": msg.Subject})
		return
	}
	if m.Toolkit != "" && b.toolkit != "" && m.Toolkit != b.toolkit {
		return
	}
	_ = b.logger.Debug(logging.CategoryNative, "notification", "", map[string]any{
		"subject": msg.Subject,
		"node":    m.Node.String(),
	})
	fn(m.Node)
}

// Close drops the inbound subscriptions. The bus itself stays open.
func (b *BusBridge) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	var first error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
