package component

import (
	"sync"
	"time"

	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// Lock is the toolkit-wide serializing lock. It guards the Tree and all
// focus coordinator state.
//
// Lock is not reentrant. Code that already holds it calls the ...Locked
// variants of an operation instead of the public entry point. It is never
// held while events are delivered to listeners, so listener code may call
// any public operation.
type Lock struct {
	mu sync.Mutex
}

// Lock acquires the lock, recording how long the caller waited.
func (l *Lock) Lock() {
	start := time.Now()
	l.mu.Lock()
	telemetry.ObserveLockWait(time.Since(start))
}

// Unlock releases the lock.
func (l *Lock) Unlock() {
	l.mu.Unlock()
}

// Do runs fn with the lock held.
func (l *Lock) Do(fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}
