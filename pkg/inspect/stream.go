package inspect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// SubscribeMessage narrows or widens what a client receives.
type SubscribeMessage struct {
	Action string   `json:"action"` // "subscribe" or "unsubscribe"
	Kinds  []string `json:"kinds,omitempty"`
}

// EventStream fans dispatched events out to websocket clients. Clients
// receive every event until they send a subscribe message with kinds.
type EventStream struct {
	logger *logging.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]bool
	upgrader    websocket.Upgrader
	unsubscribe func()
}

type subscriber struct {
	conn    *websocket.Conn
	kinds   map[string]bool
	paused  bool
	send    chan event.Event
	mu      sync.RWMutex
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEventStream registers a listener on ch. Delivery to clients never
// blocks the dispatch goroutine; a client that falls behind loses events.
func NewEventStream(ch *event.Channel, logger *logging.Logger) *EventStream {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &EventStream{
		logger:      logger,
		subscribers: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.unsubscribe = ch.Subscribe(s.broadcast)
	return s
}

// HandleWebSocket upgrades the connection and starts streaming.
func (s *EventStream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = s.logger.Warn(logging.CategoryInspector, "stream.upgrade_failed", err.Error(), nil)
		return
	}

	// The request context ends with the handler, so the stream gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{
		conn:   conn,
		kinds:  make(map[string]bool),
		send:   make(chan event.Event, 128),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.subscribers[sub] = true
	s.mu.Unlock()
	_ = s.logger.Info(logging.CategoryInspector, "stream.connected", "", map[string]any{"remote_addr": r.RemoteAddr})

	go sub.writePump()
	go s.readPump(sub)
}

func (s *EventStream) readPump(sub *subscriber) {
	defer func() {
		s.removeSubscriber(sub)
		sub.writeMu.Lock()
		_ = sub.conn.Close()
		sub.writeMu.Unlock()
	}()

	_ = sub.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		var msg SubscribeMessage
		if err := sub.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				_ = s.logger.Warn(logging.CategoryInspector, "stream.read_failed", err.Error(), nil)
			}
			return
		}
		switch msg.Action {
		case "subscribe":
			sub.mu.Lock()
			sub.paused = false
			for _, k := range msg.Kinds {
				sub.kinds[k] = true
			}
			sub.mu.Unlock()
		case "unsubscribe":
			sub.mu.Lock()
			sub.paused = true
			sub.kinds = make(map[string]bool)
			sub.mu.Unlock()
		default:
			_ = s.logger.Debug(logging.CategoryInspector, "stream.unknown_action", msg.Action, nil)
		}
	}
}

func (sub *subscriber) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		sub.cancel()
	}()

	for {
		select {
		case ev, ok := <-sub.send:
			sub.writeMu.Lock()
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				sub.writeMu.Unlock()
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := sub.conn.WriteJSON(ev)
			sub.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			sub.writeMu.Lock()
			_ = sub.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := sub.conn.WriteMessage(websocket.PingMessage, nil)
			sub.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-sub.ctx.Done():
			return
		}
	}
}

// broadcast runs on the dispatch goroutine.
func (s *EventStream) broadcast(ev event.Event) {
	kind := ev.Kind.String()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subscribers {
		sub.mu.RLock()
		interested := !sub.paused && (len(sub.kinds) == 0 || sub.kinds[kind])
		sub.mu.RUnlock()
		if !interested {
			continue
		}
		select {
		case sub.send <- ev:
		default:
			_ = s.logger.Warn(logging.CategoryInspector, "stream.backpressure", "dropping event", map[string]any{
				"kind": kind,
				"seq":  ev.Seq,
			})
		}
	}
}

func (s *EventStream) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[sub] {
		delete(s.subscribers, sub)
		close(sub.send)
		_ = s.logger.Info(logging.CategoryInspector, "stream.closed", "", nil)
	}
}

// ActiveConnections returns the number of connected clients.
func (s *EventStream) ActiveConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Shutdown detaches from the event channel and closes every connection.
func (s *EventStream) Shutdown() {
	s.unsubscribe()
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		sub.cancel()
		sub.writeMu.Lock()
		_ = sub.conn.Close()
		sub.writeMu.Unlock()
		close(sub.send)
	}
	s.subscribers = make(map[*subscriber]bool)
}
