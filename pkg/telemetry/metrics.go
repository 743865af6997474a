// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the focus and activation core.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request paths.
const (
	PathPublic = "public"
	PathNative = "native"
)

// Request outcomes.
const (
	ResultGranted  = "granted"
	ResultRefused  = "refused"
	ResultDeferred = "deferred"
	ResultNoop     = "noop"
)

// Auto-forward outcomes.
const (
	ForwardMoved   = "moved"
	ForwardCleared = "cleared"
)

var (
	FocusRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmony",
			Subsystem: "focus",
			Name:      "requests_total",
			Help:      "Focus requests by call path and outcome.",
		},
		[]string{"path", "result"},
	)

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmony",
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Focus and window events delivered to listeners.",
		},
		[]string{"kind"},
	)

	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "harmony",
		Subsystem: "events",
		Name:      "queue_depth",
		Help:      "Events enqueued but not yet dispatched.",
	})

	AutoForwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmony",
			Subsystem: "focus",
			Name:      "auto_forward_total",
			Help:      "Focus reassignments after the owner was disqualified.",
		},
		[]string{"outcome"},
	)

	NativeCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harmony",
			Subsystem: "native",
			Name:      "commands_total",
			Help:      "Fire-and-forget commands sent to the native bridge.",
		},
		[]string{"command"},
	)

	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "harmony",
		Subsystem: "toolkit",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the serializing lock.",
		Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1},
	})
)

func RecordFocusRequest(path, result string) {
	FocusRequests.WithLabelValues(path, result).Inc()
}

func RecordDispatch(kind string) {
	EventsDispatched.WithLabelValues(kind).Inc()
}

func SetQueueDepth(n int) {
	EventQueueDepth.Set(float64(n))
}

func RecordForward(outcome string) {
	AutoForwards.WithLabelValues(outcome).Inc()
}

func RecordNativeCommand(command string) {
	NativeCommands.WithLabelValues(command).Inc()
}

func ObserveLockWait(d time.Duration) {
	LockWait.Observe(d.Seconds())
}
