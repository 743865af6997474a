package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 1)

	sub, err := bus.Subscribe(ctx, "harmony.native.activated", func(msg *Message) []byte {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := bus.Publish(ctx, "harmony.native.activated", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != "hello" {
			t.Errorf("Expected 'hello', got %q", string(msg.Data))
		}
		if msg.Subject != "harmony.native.activated" {
			t.Errorf("Expected subject 'harmony.native.activated', got %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestMemoryBus_PreservesOrder(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	sub, err := bus.Subscribe(ctx, "harmony.native.>", func(msg *Message) []byte {
		mu.Lock()
		got = append(got, string(msg.Data))
		n := len(got)
		mu.Unlock()
		if n == 500 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	for i := 0; i < 500; i++ {
		bus.Publish(ctx, "harmony.native.focused", []byte{byte('a' + i%26)})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, s := range got {
		if want := string([]byte{byte('a' + i%26)}); s != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, s)
		}
	}
}

func TestMemoryBus_Wildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "harmony.native.*", func(msg *Message) []byte {
		received.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish(ctx, "harmony.native.activated", []byte("1"))
	bus.Publish(ctx, "harmony.native.focused", []byte("2"))
	bus.Publish(ctx, "harmony.other.focused", []byte("3"))

	time.Sleep(100 * time.Millisecond)

	if received.Load() != 2 {
		t.Errorf("Expected 2 messages, got %d", received.Load())
	}
}

func TestMemoryBus_RequestReply(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	sub, err := bus.Subscribe(ctx, "harmony.inspect.state", func(msg *Message) []byte {
		return append([]byte("state:"), msg.Data...)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	reply, err := bus.Request(ctx, "harmony.inspect.state", []byte("main"), time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(reply) != "state:main" {
		t.Errorf("Expected 'state:main', got %q", string(reply))
	}
}

func TestMemoryBus_RequestErrors(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	if _, err := bus.Request(ctx, "nobody.home", nil, 50*time.Millisecond); err != ErrNoResponders {
		t.Errorf("Expected ErrNoResponders, got %v", err)
	}

	sub, _ := bus.Subscribe(ctx, "slow", func(msg *Message) []byte { return nil })
	defer sub.Unsubscribe()
	if _, err := bus.Request(ctx, "slow", nil, 50*time.Millisecond); err != ErrTimeout {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32
	sub, err := bus.Subscribe(ctx, "harmony.native.focused", func(msg *Message) []byte {
		received.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus.Publish(ctx, "harmony.native.focused", []byte("1"))
	time.Sleep(50 * time.Millisecond)
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	bus.Publish(ctx, "harmony.native.focused", []byte("2"))
	time.Sleep(50 * time.Millisecond)

	if received.Load() != 1 {
		t.Errorf("Expected 1 message, got %d", received.Load())
	}
}

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"harmony.native.focused", "harmony.native.focused", true},
		{"harmony.native.*", "harmony.native.focused", true},
		{"harmony.native.*", "harmony.native.focused.extra", false},
		{"harmony.>", "harmony.native.focused", true},
		{"harmony.>", "harmony", false},
		{"*.native.*", "harmony.native.activated", true},
		{"harmony.native.activated", "harmony.native.deactivated", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.subject, func(t *testing.T) {
			if got := matchSubject(tt.pattern, tt.subject); got != tt.want {
				t.Errorf("matchSubject(%q, %q) = %v, want %v", tt.pattern, tt.subject, got, tt.want)
			}
		})
	}
}

func TestMemoryBus_ClosedOperations(t *testing.T) {
	bus := NewMemoryBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if err := bus.Publish(ctx, "x", nil); err != ErrClosed {
		t.Errorf("Publish after close: expected ErrClosed, got %v", err)
	}
	if _, err := bus.Subscribe(ctx, "x", func(*Message) []byte { return nil }); err != ErrClosed {
		t.Errorf("Subscribe after close: expected ErrClosed, got %v", err)
	}
	if err := bus.Close(); err != ErrClosed {
		t.Errorf("double Close: expected ErrClosed, got %v", err)
	}
}
