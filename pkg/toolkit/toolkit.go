// Package toolkit assembles one focus subsystem instance: the serializing
// lock, the component tree, the event channel, the focus coordinator and the
// native bridge selected by configuration.
package toolkit

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/apache/harmony-sub021/pkg/bus"
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/config"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/focus"
	"github.com/apache/harmony-sub021/pkg/inspect"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/scene"
	"github.com/apache/harmony-sub021/pkg/telemetry"
)

// Toolkit is the context object every focus operation hangs off. There is
// no process-wide state; several toolkits may coexist.
type Toolkit struct {
	ID string

	cfg    *config.Config
	logger *logging.Logger
	tree   *component.Tree
	lock   *component.Lock
	events *event.Channel
	coord  *focus.Coordinator

	bridge    native.Bridge
	busBridge *native.BusBridge
	msgBus    bus.MessageBus
	ownsBus   bool
	tracer    *telemetry.TracerProvider

	mu      sync.RWMutex
	manager focus.Manager
}

type options struct {
	logger      *logging.Logger
	bridge      native.Bridge
	bus         bus.MessageBus
	traceWriter io.Writer
}

// Option customizes New.
type Option func(*options)

// WithLogger replaces the configured logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBridge replaces the configured native bridge.
func WithBridge(b native.Bridge) Option {
	return func(o *options) { o.bridge = b }
}

// WithBus supplies the message bus for the nats bridge instead of dialing
// native.nats_url. The toolkit does not close a supplied bus.
func WithBus(b bus.MessageBus) Option {
	return func(o *options) { o.bus = b }
}

// WithTraceWriter sets where spans are exported when tracing is enabled.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) { o.traceWriter = w }
}

// New builds a toolkit from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Toolkit, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := &Toolkit{
		ID:   uuid.NewString(),
		cfg:  cfg,
		tree: component.NewTree(),
		lock: &component.Lock{},
	}

	if err := t.initLogger(o.logger); err != nil {
		return nil, err
	}
	keys, err := BuildKeys(cfg.Focus.Keys)
	if err != nil {
		return nil, err
	}
	policy, err := focus.PolicyByName(cfg.Focus.Policy)
	if err != nil {
		return nil, err
	}
	if err := t.initBridge(o); err != nil {
		_ = t.logger.Close()
		return nil, err
	}
	if cfg.Telemetry.Tracing {
		w := o.traceWriter
		if w == nil {
			w = os.Stderr
		}
		name := cfg.Telemetry.ServiceName
		if name == "" {
			name = "harmony"
		}
		if t.tracer, err = telemetry.NewTracerProvider(name, w); err != nil {
			_ = t.Close()
			return nil, err
		}
	}

	t.events = event.NewChannel(cfg.Events.Capacity, t.logger)
	t.coord = focus.New(focus.Options{
		Tree:   t.tree,
		Lock:   t.lock,
		Events: t.events,
		Bridge: t.bridge,
		Logger: t.logger,
		Policy: policy,
		Keys:   keys,
	})
	t.manager = t.coord

	_ = t.logger.Info(logging.CategoryConfig, "toolkit.created", "", map[string]any{
		"toolkit": t.ID,
		"bridge":  cfg.Native.Bridge,
		"policy":  cfg.Focus.Policy,
	})
	return t, nil
}

func (t *Toolkit) initLogger(l *logging.Logger) error {
	if l == nil {
		sessionID := t.ID[:8]
		if dir := t.cfg.Logging.Dir; dir != "" {
			var err error
			if l, err = logging.NewLogger(dir, sessionID); err != nil {
				return herrors.Wrap(err, herrors.ErrCodeConfigInvalid, "failed to open log directory").
					WithContext("dir", dir)
			}
		} else {
			l = logging.New(os.Stderr, sessionID)
		}
	}
	level, _ := logging.ParseLevel(t.cfg.Logging.Level)
	l.SetMinLevel(level)
	t.logger = l
	return nil
}

func (t *Toolkit) initBridge(o options) error {
	if o.bridge != nil {
		t.bridge = o.bridge
		return nil
	}
	switch t.cfg.Native.Bridge {
	case config.BridgeNATS:
		t.msgBus = o.bus
		if t.msgBus == nil {
			nb, err := bus.NewNATSBus(bus.Config{
				URL:     t.cfg.Native.NATSURL,
				Name:    "harmony-" + t.ID[:8],
				Timeout: t.cfg.Native.Timeout,
			})
			if err != nil {
				return herrors.Wrap(err, herrors.ErrCodeNativeBridge, "failed to connect native bus").
					WithContext("url", t.cfg.Native.NATSURL)
			}
			t.msgBus = nb
			t.ownsBus = true
		}
		t.busBridge = native.NewBusBridge(t.msgBus, t.cfg.Native.SubjectPrefix, t.ID, t.logger)
		t.bridge = t.busBridge
	default:
		t.bridge = native.NewRecorder()
	}
	return nil
}

// BuildKeys resolves configured key names into bindings.
func BuildKeys(cfg map[string][]string) (focus.Keys, error) {
	if len(cfg) == 0 {
		return focus.DefaultKeys(), nil
	}
	keys := make(focus.Keys)
	for name, strokes := range cfg {
		action, err := focus.ParseAction(name)
		if err != nil {
			return nil, herrors.Wrap(err, herrors.ErrCodeConfigInvalid, "bad traversal action").
				WithContext("field", "focus.keys")
		}
		for _, s := range strokes {
			ks, err := focus.ParseKeyStroke(s)
			if err != nil {
				return nil, herrors.Wrap(err, herrors.ErrCodeConfigInvalid, "bad key name").
					WithContext("field", "focus.keys."+name)
			}
			keys[ks] = action
		}
	}
	return keys, nil
}

// Manager returns the installed focus manager.
func (t *Toolkit) Manager() focus.Manager {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.manager
}

// SetFocusManager installs a custom focus manager. Native notifications
// are routed to it from then on.
func (t *Toolkit) SetFocusManager(m focus.Manager) error {
	if m == nil {
		return herrors.New(herrors.ErrCodeInvalidManager, "focus manager must not be nil").
			WithContext("toolkit", t.ID)
	}
	t.mu.Lock()
	t.manager = m
	t.mu.Unlock()
	_ = t.logger.Info(logging.CategoryConfig, "toolkit.manager_replaced", "", map[string]any{"toolkit": t.ID})
	return nil
}

// Coordinator returns the built-in coordinator, which owns node creation
// even when a custom manager is installed.
func (t *Toolkit) Coordinator() *focus.Coordinator { return t.coord }

// Events returns the event channel.
func (t *Toolkit) Events() *event.Channel { return t.events }

// Bridge returns the native bridge.
func (t *Toolkit) Bridge() native.Bridge { return t.bridge }

// Logger returns the toolkit logger.
func (t *Toolkit) Logger() *logging.Logger { return t.logger }

// Config returns the configuration the toolkit was built or last reloaded
// with.
func (t *Toolkit) Config() *config.Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// NativeWindowActivated forwards to the installed manager.
func (t *Toolkit) NativeWindowActivated(window component.NodeID) {
	t.Manager().NativeWindowActivated(window)
}

// NativeWindowDeactivated forwards to the installed manager.
func (t *Toolkit) NativeWindowDeactivated(window component.NodeID) {
	t.Manager().NativeWindowDeactivated(window)
}

// NativeFocusChanged forwards to the installed manager.
func (t *Toolkit) NativeFocusChanged(target component.NodeID) bool {
	return t.Manager().NativeFocusChanged(target)
}

// FocusOwner reports the installed manager's visible focus owner.
func (t *Toolkit) FocusOwner() component.NodeID { return t.Manager().FocusOwner() }

// FocusedWindow reports the installed manager's visible focused window.
func (t *Toolkit) FocusedWindow() component.NodeID { return t.Manager().FocusedWindow() }

// ActiveWindow reports the installed manager's visible active window.
func (t *Toolkit) ActiveWindow() component.NodeID { return t.Manager().ActiveWindow() }

var (
	_ native.Sink     = (*Toolkit)(nil)
	_ native.Reporter = (*Toolkit)(nil)
)

// Run dispatches events until ctx is cancelled. It also attaches the bus
// bridge, serves the inspector when enabled, and runs any extra pumps
// (such as a terminal pump) in the same group. The first failure stops
// everything.
func (t *Toolkit) Run(ctx context.Context, pumps ...func(context.Context) error) error {
	if t.busBridge != nil {
		if err := t.busBridge.Attach(ctx, t); err != nil {
			return err
		}
		defer t.busBridge.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.events.Run(ctx) })

	if cfg := t.Config(); cfg.Inspector.Enabled {
		srv := inspect.New(t.Manager(), t.events, inspect.WithLogger(t.logger), inspect.WithToolkitID(t.ID))
		g.Go(func() error { return srv.Serve(ctx, cfg.Inspector.Bind) })
	}

	for _, pump := range pumps {
		g.Go(func() error { return pump(ctx) })
	}

	err := g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	details := map[string]any{"toolkit": t.ID}
	var coded *herrors.Error
	if errors.As(err, &coded) {
		details["code"] = string(coded.Code)
		details["stack"] = coded.StackTrace()
	}
	_ = t.logger.Error(logging.CategoryDispatch, "toolkit.stopped", err.Error(), details)
	return err
}

// RunScene builds and replays a scene against the installed manager.
func (t *Toolkit) RunScene(ctx context.Context, s *scene.Scene) (*scene.Result, error) {
	return scene.Run(ctx, t.coord, t.Manager(), s)
}

// Reload applies the settings that can change on a running toolkit: log
// level, default traversal policy and key bindings. Bridge, channel and
// inspector settings need a new toolkit.
func (t *Toolkit) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	keys, err := BuildKeys(cfg.Focus.Keys)
	if err != nil {
		return err
	}
	policy, err := focus.PolicyByName(cfg.Focus.Policy)
	if err != nil {
		return err
	}
	if err := t.coord.SetPolicy(component.NoNode, policy); err != nil {
		return err
	}
	t.coord.SetKeys(keys)
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	t.logger.SetMinLevel(level)

	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
	_ = t.logger.Info(logging.CategoryConfig, "toolkit.reloaded", "", map[string]any{"policy": cfg.Focus.Policy})
	return nil
}

// WatchConfig reloads the toolkit whenever the file at path changes.
// Invalid files are logged and ignored.
func (t *Toolkit) WatchConfig(ctx context.Context, path string) error {
	return config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err == nil {
			err = t.Reload(cfg)
		}
		if err != nil {
			_ = t.logger.Warn(logging.CategoryConfig, "toolkit.reload_failed", err.Error(), map[string]any{"path": path})
		}
	})
}

// Close releases the bus connection, tracer and log files.
func (t *Toolkit) Close() error {
	var errs []error
	if t.busBridge != nil {
		errs = append(errs, t.busBridge.Close())
	}
	if t.ownsBus && t.msgBus != nil {
		errs = append(errs, t.msgBus.Close())
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(context.Background()))
	}
	if t.logger != nil {
		errs = append(errs, t.logger.Close())
	}
	return errors.Join(errs...)
}
