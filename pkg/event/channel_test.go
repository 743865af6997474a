package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/harmony-sub021/pkg/component"
)

func kinds(evs []Event) []Kind {
	out := make([]Kind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

func TestChannel_FIFOAcrossBatches(t *testing.T) {
	ch := NewChannel(0, nil)
	var got []Event
	ch.Subscribe(func(ev Event) { got = append(got, ev) })

	ch.Post(
		Window(WindowLostFocus, 1, 2),
		Focus(FocusLost, 3, 4, false),
	)
	ch.Post(Focus(FocusGained, 4, 3, false))

	assert.Equal(t, 3, ch.Len())
	assert.Equal(t, 3, ch.DispatchPending())
	assert.Equal(t, 0, ch.Len())

	require.Len(t, got, 3)
	assert.Equal(t, []Kind{WindowLostFocus, FocusLost, FocusGained}, kinds(got))
	for i, ev := range got {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Time.IsZero())
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestChannel_ApplyRunsBeforeListeners(t *testing.T) {
	ch := NewChannel(4, nil)
	var order []string
	ch.SetApply(func(ev Event) { order = append(order, "apply:"+ev.Kind.String()) })
	ch.Subscribe(func(ev Event) { order = append(order, "listen:"+ev.Kind.String()) })

	ch.Post(Focus(FocusGained, 1, 0, false))
	ch.DispatchPending()

	assert.Equal(t, []string{"apply:focus-gained", "listen:focus-gained"}, order)
}

func TestChannel_FilteredSubscriptions(t *testing.T) {
	ch := NewChannel(4, nil)
	var focus, window int
	ch.OnFocus(func(Event) { focus++ })
	ch.OnWindow(func(Event) { window++ })

	ch.Post(
		Window(WindowActivated, 1, 0),
		Window(WindowGainedFocus, 1, 0),
		Focus(FocusGained, 2, 0, false),
	)
	ch.DispatchPending()

	assert.Equal(t, 1, focus)
	assert.Equal(t, 2, window)
}

func TestChannel_Unsubscribe(t *testing.T) {
	ch := NewChannel(4, nil)
	calls := 0
	unsub := ch.Subscribe(func(Event) { calls++ })

	ch.Post(Focus(FocusGained, 1, 0, false))
	ch.DispatchPending()
	unsub()
	unsub()
	ch.Post(Focus(FocusLost, 1, 0, false))
	ch.DispatchPending()

	assert.Equal(t, 1, calls)
}

func TestChannel_ListenerPanicDoesNotStopDelivery(t *testing.T) {
	ch := NewChannel(4, nil)
	var got []Kind
	ch.Subscribe(func(ev Event) {
		if ev.Kind == FocusLost {
			panic("listener bug")
		}
	})
	ch.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	ch.Post(Focus(FocusLost, 1, 2, false), Focus(FocusGained, 2, 1, false))
	ch.DispatchPending()

	assert.Equal(t, []Kind{FocusLost, FocusGained}, got)
}

func TestChannel_RunAndFlush(t *testing.T) {
	ch := NewChannel(4, nil)
	var mu sync.Mutex
	var got []Kind
	ch.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Kind)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	for i := 0; i < 50; i++ {
		ch.Post(Focus(FocusLost, 1, 2, false), Focus(FocusGained, 2, 1, false))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	require.NoError(t, ch.Flush(flushCtx))

	mu.Lock()
	require.Len(t, got, 100)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, FocusLost, got[i])
		assert.Equal(t, FocusGained, got[i+1])
	}
	mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestChannel_SecondRunIsRejected(t *testing.T) {
	ch := NewChannel(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		_ = ch.Run(ctx)
	}()
	<-started

	require.Eventually(t, ch.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, ch.Run(ctx), ErrRunning)
}

func TestChannel_FlushWithoutConsumerHonoursContext(t *testing.T) {
	ch := NewChannel(1, nil)
	require.NoError(t, ch.Flush(context.Background()), "empty channel is idle")

	ch.Post(Focus(FocusGained, 1, 0, false))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Flush(ctx), context.DeadlineExceeded)
}

func TestEvent_StringAndKind(t *testing.T) {
	ev := Focus(FocusLost, component.NodeID(3), component.NodeID(5), true)
	assert.Equal(t, "focus-lost(#3 opposite=#5 temporary)", ev.String())
	assert.Equal(t, "window-activated(#1)", Window(WindowActivated, 1, 0).String())

	k, ok := ParseKind("window-lost-focus")
	assert.True(t, ok)
	assert.Equal(t, WindowLostFocus, k)
	assert.True(t, k.IsWindow())
	assert.False(t, k.IsFocus())

	var decoded Kind
	require.NoError(t, decoded.UnmarshalText([]byte("focus-gained")))
	assert.Equal(t, FocusGained, decoded)
	assert.Error(t, decoded.UnmarshalText([]byte("nope")))
}
