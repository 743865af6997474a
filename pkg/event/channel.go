package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// ErrRunning is returned when a second consumer tries to run the channel.
var ErrRunning = errors.New("event channel already running")

// Listener receives dispatched events on the consumer goroutine.
type Listener func(Event)

// Channel is an unbounded FIFO of events with exactly one consumer.
// Producers never block and events are never dropped or coalesced.
type Channel struct {
	mu      sync.Mutex
	queue   []Event
	seq     uint64
	wake    chan struct{}
	idle    chan struct{}
	busy    bool
	running bool

	listeners []registration
	nextSub   uint64

	apply  func(Event)
	logger *logging.Logger

	// consumer serializes Run and DispatchPending.
	consumer sync.Mutex
}

type registration struct {
	id uint64
	fn Listener
}

// NewChannel creates a channel with the given initial queue capacity.
func NewChannel(capacity int, logger *logging.Logger) *Channel {
	if capacity <= 0 {
		capacity = 64
	}
	idle := make(chan struct{})
	close(idle)
	return &Channel{
		queue:  make([]Event, 0, capacity),
		wake:   make(chan struct{}, 1),
		idle:   idle,
		logger: logger,
	}
}

// SetApply installs the hook that runs before listeners see each event.
// The focus coordinator uses it to publish its visible state.
func (c *Channel) SetApply(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply = fn
}

// Post appends events as one contiguous batch, stamping IDs and sequence
// numbers. It never blocks.
func (c *Channel) Post(events ...Event) {
	if len(events) == 0 {
		return
	}
	now := time.Now()

	c.mu.Lock()
	if len(c.queue) == 0 && !c.busy {
		c.idle = make(chan struct{})
	}
	for _, ev := range events {
		c.seq++
		ev.Seq = c.seq
		ev.ID = ulid.Make().String()
		if ev.Time.IsZero() {
			ev.Time = now
		}
		c.queue = append(c.queue, ev)
	}
	depth := len(c.queue)
	c.mu.Unlock()

	telemetry.SetQueueDepth(depth)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued, undispatched events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Running reports whether a Run loop is active.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Subscribe registers a listener. Listeners run in registration order.
func (c *Channel) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.listeners = append(c.listeners, registration{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, r := range c.listeners {
				if r.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// OnFocus subscribes to focus-gained and focus-lost only.
func (c *Channel) OnFocus(fn Listener) (unsubscribe func()) {
	return c.Subscribe(func(ev Event) {
		if ev.Kind.IsFocus() {
			fn(ev)
		}
	})
}

// OnWindow subscribes to window events only.
func (c *Channel) OnWindow(fn Listener) (unsubscribe func()) {
	return c.Subscribe(func(ev Event) {
		if ev.Kind.IsWindow() {
			fn(ev)
		}
	})
}

// Run consumes events until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		c.consumer.Lock()
		for c.dispatchOne(ctx) {
		}
		c.consumer.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
	}
}

// DispatchPending drains the queue on the calling goroutine and returns how
// many events were delivered. It must not be called from a listener.
func (c *Channel) DispatchPending() int {
	c.consumer.Lock()
	defer c.consumer.Unlock()
	n := 0
	for c.dispatchOne(context.Background()) {
		n++
	}
	return n
}

// Flush waits until every event posted so far has been delivered. With no
// consumer running it waits for ctx.
func (c *Channel) Flush(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) dispatchOne(ctx context.Context) bool {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return false
	}
	ev := c.queue[0]
	c.queue[0] = Event{}
	c.queue = c.queue[1:]
	c.busy = true
	apply := c.apply
	listeners := make([]registration, len(c.listeners))
	copy(listeners, c.listeners)
	depth := len(c.queue)
	c.mu.Unlock()

	telemetry.SetQueueDepth(depth)
	c.deliver(ctx, ev, apply, listeners)

	c.mu.Lock()
	c.busy = false
	if len(c.queue) == 0 {
		select {
		case <-c.idle:
		default:
			close(c.idle)
		}
	}
	c.mu.Unlock()
	return true
}

func (c *Channel) deliver(ctx context.Context, ev Event, apply func(Event), listeners []registration) {
	_, span := telemetry.StartSpan(ctx, "dispatch "+ev.Kind.String())
	span.SetAttributes(
		telemetry.AttrEventKind.String(ev.Kind.String()),
		telemetry.AttrEventID.String(ev.ID),
		telemetry.AttrEventSource.Int64(int64(ev.Source)),
		telemetry.AttrEventOpposite.Int64(int64(ev.Opposite)),
		telemetry.AttrTemporary.Bool(ev.Temporary),
	)
	defer span.End()

	if apply != nil {
		apply(ev)
	}
	for _, r := range listeners {
		c.call(r.fn, ev)
	}
	telemetry.RecordDispatch(ev.Kind.String())
}

func (c *Channel) call(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			_ = c.logger.Error(logging.CategoryDispatch, "listener.panic", fmt.Sprint(r), map[string]any{
				"event": ev.String(),
				"seq":   ev.Seq,
			})
		}
	}()
	fn(ev)
}
