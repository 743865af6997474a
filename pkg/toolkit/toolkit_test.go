package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/harmony-sub021/pkg/bus"
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/config"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/focus"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/scene"
)

func quietToolkit(t *testing.T, cfg *config.Config, opts ...Option) *Toolkit {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Nop())}, opts...)
	tk, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tk.Close() })
	return tk
}

func TestNew_Defaults(t *testing.T) {
	tk := quietToolkit(t, nil)

	assert.NotEmpty(t, tk.ID)
	assert.IsType(t, &native.Recorder{}, tk.Bridge())
	assert.Same(t, tk.Coordinator(), tk.Manager())
	assert.Same(t, tk.Events(), tk.Coordinator().Events())
	assert.Equal(t, focus.PolicyContainer, tk.Coordinator().PolicyFor(component.NoNode).(*focus.SortedPolicy).Name())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Focus.Policy = "spiral"
	_, err := New(cfg, WithLogger(logging.Nop()))
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeConfigInvalid))

	cfg = config.DefaultConfig()
	cfg.Focus.Keys = map[string][]string{"forward": {"Hyper+Tab"}}
	_, err = New(cfg, WithLogger(logging.Nop()))
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeConfigInvalid))
}

func TestNew_LogDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Dir = t.TempDir()
	tk, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, tk.Close())

	entries, err := os.ReadDir(filepath.Join(cfg.Logging.Dir, "sessions"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestNew_TracingExportsDispatchSpans(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telemetry.Tracing = true
	var buf bytes.Buffer
	tk := quietToolkit(t, cfg, WithTraceWriter(&buf))

	c := tk.Coordinator()
	w, err := c.NewWindow("main", component.WindowFrame, component.NoNode)
	require.NoError(t, err)
	require.NoError(t, c.Show(w))
	c.NativeWindowActivated(w)
	tk.Events().DispatchPending()
	require.NoError(t, tk.Close())

	assert.Contains(t, buf.String(), "dispatch window-activated")
}

func TestBuildKeys(t *testing.T) {
	keys, err := BuildKeys(map[string][]string{
		"forward":  {"Tab", "Ctrl+N"},
		"up_cycle": {"Ctrl+Up"},
	})
	require.NoError(t, err)
	assert.Equal(t, focus.ActionForward, keys.Lookup(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)))
	assert.Equal(t, focus.ActionUpCycle, keys.Lookup(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModCtrl)))
	assert.Equal(t, focus.ActionNone, keys.Lookup(tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone)))

	keys, err = BuildKeys(nil)
	require.NoError(t, err)
	assert.Equal(t, focus.DefaultKeys(), keys)

	_, err = BuildKeys(map[string][]string{"sideways": {"Tab"}})
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeConfigInvalid))
}

// countingManager is a custom manager that counts native activations and
// otherwise behaves like the built-in coordinator.
type countingManager struct {
	*focus.Coordinator
	activations atomic.Int32
}

func (m *countingManager) NativeWindowActivated(w component.NodeID) {
	m.activations.Add(1)
	m.Coordinator.NativeWindowActivated(w)
}

func TestSetFocusManager(t *testing.T) {
	tk := quietToolkit(t, nil)

	err := tk.SetFocusManager(nil)
	assert.True(t, herrors.IsCode(err, herrors.ErrCodeInvalidManager))
	assert.Same(t, tk.Coordinator(), tk.Manager(), "failed install keeps the previous manager")

	custom := &countingManager{Coordinator: tk.Coordinator()}
	require.NoError(t, tk.SetFocusManager(custom))
	assert.Same(t, custom, tk.Manager())

	w, err := tk.Coordinator().NewWindow("main", component.WindowFrame, component.NoNode)
	require.NoError(t, err)
	require.NoError(t, tk.Manager().Show(w))
	tk.NativeWindowActivated(w)
	assert.Equal(t, int32(1), custom.activations.Load())
	assert.Equal(t, w, tk.Coordinator().State().Actual.ActiveWindow)
}

func TestRun_BusBridgeDeliversNativeNotifications(t *testing.T) {
	mb := bus.NewMemoryBus()
	defer mb.Close()
	cfg := config.DefaultConfig()
	cfg.Native.Bridge = config.BridgeNATS
	tk := quietToolkit(t, cfg, WithBus(mb))
	require.IsType(t, &native.BusBridge{}, tk.Bridge())

	c := tk.Coordinator()
	w, err := c.NewWindow("main", component.WindowFrame, component.NoNode)
	require.NoError(t, err)
	a := c.NewLeaf("a")
	require.NoError(t, c.Attach(w, a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()
	require.Eventually(t, tk.Events().Running, time.Second, time.Millisecond)

	// Showing the window publishes an activate command; the fake platform
	// answers with an activated notification.
	bridge := tk.Bridge().(*native.BusBridge)
	_, err = mb.Subscribe(ctx, bridge.Subject(native.SubjectActivate), func(msg *bus.Message) []byte {
		var m native.Message
		if json.Unmarshal(msg.Data, &m) == nil {
			data, _ := json.Marshal(native.Message{Toolkit: tk.ID, Node: m.Node})
			_ = mb.Publish(ctx, bridge.Subject(native.SubjectActivated), data)
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Show(w))

	require.Eventually(t, func() bool { return c.FocusOwner() == a }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, w, c.ActiveWindow())

	report, err := native.QueryState(ctx, mb, cfg.Native.SubjectPrefix, tk.ID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, native.Report{Toolkit: tk.ID, FocusOwner: a, FocusedWindow: w, ActiveWindow: w}, report)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_ExtraPumpErrorStopsGroup(t *testing.T) {
	tk := quietToolkit(t, nil)
	boom := herrors.New(herrors.ErrCodeInternal, "pump failed")

	err := tk.Run(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, tk.Events().Running())
}

func TestRun_LogsCodedFailureWithStack(t *testing.T) {
	var buf bytes.Buffer
	tk := quietToolkit(t, nil, WithLogger(logging.New(&buf, "test")))
	boom := herrors.New(herrors.ErrCodeNativeBridge, "platform went away")

	require.ErrorIs(t, tk.Run(context.Background(), func(context.Context) error { return boom }), boom)

	var ev logging.Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(lastLine(buf.Bytes())), &ev))
	assert.Equal(t, "toolkit.stopped", ev.EventType)
	assert.Equal(t, logging.LevelError, ev.Level)
	assert.Equal(t, "NATIVE_BRIDGE", ev.Details["code"])
	assert.Contains(t, ev.Details["stack"], "Stack trace:")
}

func lastLine(b []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	return lines[len(lines)-1]
}

func TestRunScene(t *testing.T) {
	tk := quietToolkit(t, nil)
	s, err := scene.Parse([]byte(`
windows:
  - name: w
    children:
      - name: a
      - name: b
steps:
  - op: activate
    target: w
  - op: next
    owner: b
`))
	require.NoError(t, err)

	res, err := tk.RunScene(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Passed(), "failures: %v", res.Failures)
	assert.Equal(t, "focus-gained(b opposite=a)", res.Lines()[len(res.Lines())-1])
}

func TestReload(t *testing.T) {
	tk := quietToolkit(t, nil)

	cfg := config.DefaultConfig()
	cfg.Focus.Policy = "layout"
	cfg.Focus.Keys = map[string][]string{"forward": {"Ctrl+N"}}
	cfg.Logging.Level = "warn"
	require.NoError(t, tk.Reload(cfg))

	assert.Equal(t, focus.PolicyLayout, tk.Coordinator().PolicyFor(component.NoNode).(*focus.SortedPolicy).Name())
	assert.Equal(t, logging.LevelWarn, tk.Logger().MinLevel())
	assert.Same(t, cfg, tk.Config())
	assert.False(t, tk.Coordinator().DispatchKey(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)))

	bad := config.DefaultConfig()
	bad.Focus.Policy = "spiral"
	assert.Error(t, tk.Reload(bad))
	assert.Same(t, cfg, tk.Config())
}

func TestWatchConfig(t *testing.T) {
	tk := quietToolkit(t, nil)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("focus:\n  policy: container\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tk.WatchConfig(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte("focus:\n  policy: layout\n"), 0o644))
	require.Eventually(t, func() bool { return tk.Config().Focus.Policy == "layout" }, 3*time.Second, 10*time.Millisecond)
}
