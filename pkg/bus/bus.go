// Package bus carries native window notifications and commands between the
// toolkit and an out-of-process platform shim. NATS is the production
// transport; MemoryBus serves tests and single-process setups.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a request times out waiting for a response.
	ErrTimeout = errors.New("request timeout")

	// ErrNoResponders is returned when no subscriber handles a request.
	ErrNoResponders = errors.New("no responders available")

	// ErrClosed is returned when operating on a closed bus.
	ErrClosed = errors.New("bus closed")
)

// MessageBus is publish/subscribe with request/reply.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends data to every subscriber of subject without waiting.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler. Messages on one subscription are
	// handled one at a time in publish order. "*" matches one token and
	// ">" the remaining tokens.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Request publishes data and waits for one reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) ([]byte, error)

	Close() error
}

// MessageHandler processes a message. A non-nil return is sent as the reply
// when the sender expects one.
type MessageHandler func(msg *Message) []byte

// Message is one delivery.
type Message struct {
	Subject string
	Data    []byte
	ReplyTo string
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Subject() string
}

// Config configures a NATS connection.
type Config struct {
	URL     string
	Name    string
	Timeout time.Duration
}

// DefaultConfig returns the local NATS defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "harmony",
		Timeout: 5 * time.Second,
	}
}
