// Package inspect serves a read-mostly HTTP view of a running toolkit: the
// focus state, Prometheus metrics and a websocket stream of dispatched
// events.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/focus"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// StateResponse is the body of GET /state.
type StateResponse struct {
	Toolkit string         `json:"toolkit,omitempty"`
	Actual  focus.Snapshot `json:"actual"`
	Visible focus.Snapshot `json:"visible"`
	Pending int            `json:"pending_events"`
}

// Server is the inspector.
type Server struct {
	manager   focus.Manager
	events    *event.Channel
	logger    *logging.Logger
	toolkitID string

	stream *EventStream
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithToolkitID labels /state responses.
func WithToolkitID(id string) Option {
	return func(s *Server) { s.toolkitID = id }
}

// New builds the inspector for a manager and its event channel.
func New(m focus.Manager, ch *event.Channel, opts ...Option) *Server {
	s := &Server{manager: m, events: ch, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.stream = NewEventStream(ch, s.logger)

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/state", s.handleState)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/events", s.stream.HandleWebSocket)
	r.Post("/focus/{node}", s.handleRequestFocus)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Stream returns the websocket event stream.
func (s *Server) Stream() *EventStream { return s.stream }

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	_ = s.logger.Info(logging.CategoryInspector, "inspector.listening", "", map[string]any{"addr": ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		s.stream.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.stream.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.manager.State()
	respondJSON(w, http.StatusOK, StateResponse{
		Toolkit: s.toolkitID,
		Actual:  st.Actual,
		Visible: st.Visible,
		Pending: s.events.Len(),
	})
}

// handleRequestFocus issues a public cross-window request for a node.
func (s *Server) handleRequestFocus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "node")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		respondError(w, http.StatusBadRequest, errors.New("node must be a positive integer"))
		return
	}
	granted := s.manager.RequestFocus(component.NodeID(n))
	_ = s.logger.Debug(logging.CategoryInspector, "inspector.request", "", map[string]any{
		"node":    raw,
		"granted": granted,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
