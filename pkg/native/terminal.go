package native

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// KeyDispatcher consumes traversal keys.
type KeyDispatcher interface {
	DispatchKey(ev *tcell.EventKey) bool
}

// TerminalPump turns tcell screen events into native notifications for one
// window: terminal focus-in and focus-out become activation and
// deactivation, keys go to the dispatcher.
type TerminalPump struct {
	screen tcell.Screen
	sink   Sink
	keys   KeyDispatcher
	window component.NodeID
	logger *logging.Logger

	// OnKey receives keys the dispatcher did not consume. Returning false
	// stops the pump.
	OnKey func(ev *tcell.EventKey) bool
	// Redraw is called after every handled event and on Refresh.
	Redraw func(s tcell.Screen)
}

// NewTerminalPump creates a pump for an initialized screen.
func NewTerminalPump(screen tcell.Screen, sink Sink, keys KeyDispatcher, window component.NodeID, logger *logging.Logger) *TerminalPump {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TerminalPump{screen: screen, sink: sink, keys: keys, window: window, logger: logger}
}

type refresh struct{}

// Refresh asks the pump to redraw from another goroutine.
func (p *TerminalPump) Refresh() {
	_ = p.screen.PostEvent(tcell.NewEventInterrupt(refresh{}))
}

// Run pumps events until ctx is done, OnKey returns false, or the screen is
// finalized.
func (p *TerminalPump) Run(ctx context.Context) error {
	p.screen.EnableFocus()
	stop := context.AfterFunc(ctx, func() {
		_ = p.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	p.draw()
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch ev := ev.(type) {
		case *tcell.EventFocus:
			_ = p.logger.Debug(logging.CategoryNative, "terminal.focus", "", map[string]any{"focused": ev.Focused})
			if ev.Focused {
				p.sink.NativeWindowActivated(p.window)
			} else {
				p.sink.NativeWindowDeactivated(p.window)
			}
		case *tcell.EventKey:
			if !p.keys.DispatchKey(ev) && p.OnKey != nil && !p.OnKey(ev) {
				return nil
			}
		case *tcell.EventResize:
			p.screen.Sync()
		}
		p.draw()
	}
}

func (p *TerminalPump) draw() {
	if p.Redraw != nil {
		p.Redraw(p.screen)
		p.screen.Show()
	}
}
