package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryBus is an in-process MessageBus.
type MemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[string][]*memorySubscription
	closed        atomic.Bool
	subCounter    atomic.Uint64
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscriptions: make(map[string][]*memorySubscription)}
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	b.deliver(&Message{Subject: subject, Data: data})
	return nil
}

// deliver fans msg out and reports whether any subscriber matched.
func (b *MemoryBus) deliver(msg *Message) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	found := false
	for pattern, subs := range b.subscriptions {
		if !matchSubject(pattern, msg.Subject) {
			continue
		}
		for _, sub := range subs {
			if sub.closed.Load() {
				continue
			}
			found = true
			sub.enqueue(msg)
		}
	}
	return found
}

func (b *MemoryBus) Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub := &memorySubscription{
		id:      fmt.Sprintf("sub-%d", b.subCounter.Add(1)),
		subject: subject,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		handler: handler,
		bus:     b,
	}

	b.mu.Lock()
	b.subscriptions[subject] = append(b.subscriptions[subject], sub)
	b.mu.Unlock()

	go sub.run(ctx)
	return sub, nil
}

func (b *MemoryBus) Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	replySubject := "_INBOX." + ulid.Make().String()
	replyChan := make(chan []byte, 1)
	sub, err := b.Subscribe(ctx, replySubject, func(msg *Message) []byte {
		select {
		case replyChan <- msg.Data:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if !b.deliver(&Message{Subject: subject, Data: data, ReplyTo: replySubject}) {
		return nil, ErrNoResponders
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-replyChan:
		return reply, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.stop()
		}
	}
	b.subscriptions = make(map[string][]*memorySubscription)
	return nil
}

// memorySubscription queues without bound so a slow handler never loses
// messages or blocks publishers.
type memorySubscription struct {
	id      string
	subject string
	handler MessageHandler
	bus     *MemoryBus

	mu      sync.Mutex
	pending []*Message
	wake    chan struct{}
	done    chan struct{}
	closed  atomic.Bool
}

func (s *memorySubscription) enqueue(msg *Message) {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) stop() {
	if !s.closed.Swap(true) {
		close(s.done)
	}
}

func (s *memorySubscription) Unsubscribe() error {
	if s.closed.Load() {
		return nil
	}
	s.stop()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subscriptions[s.subject]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.subscriptions[s.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memorySubscription) Subject() string {
	return s.subject
}

func (s *memorySubscription) run(ctx context.Context) {
	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 || s.closed.Load() {
				s.mu.Unlock()
				break
			}
			msg := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			reply := s.handler(msg)
			if reply != nil && msg.ReplyTo != "" {
				_ = s.bus.Publish(ctx, msg.ReplyTo, reply)
			}
		}
	}
}

// matchSubject checks a subject against a pattern with "*" (one token) and
// ">" (one or more trailing tokens) wildcards.
func matchSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	patternParts := strings.Split(pattern, ".")
	subjectParts := strings.Split(subject, ".")

	pi, si := 0, 0
	for pi < len(patternParts) && si < len(subjectParts) {
		switch patternParts[pi] {
		case "*":
			pi++
			si++
		case ">":
			return true
		default:
			if patternParts[pi] != subjectParts[si] {
				return false
			}
			pi++
			si++
		}
	}
	return pi == len(patternParts) && si == len(subjectParts)
}
