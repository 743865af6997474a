package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/harmony-sub021/pkg/bus"
	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/scene"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func quietConfig(t *testing.T) string {
	t.Helper()
	return writeFile(t, "config.yaml", "logging:\n  level: error\n")
}

func TestDispatch_Version(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch(context.Background(), []string{"version"}, &out, &out); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "harmony ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), []string{"frobnicate"}, &out, &out)
	if got := exitCodeForError(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d", got, exitUsage)
	}
}

func TestRunScene_PrintsEvents(t *testing.T) {
	path := writeFile(t, "scene.yaml", `
windows:
  - name: w
    children:
      - name: a
      - name: b
steps:
  - op: activate
    target: w
  - op: request
    target: b
    expect: granted
`)
	var stdout, stderr bytes.Buffer
	err := dispatch(context.Background(), []string{"run", "-scene", path, "-config", quietConfig(t)}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v (stderr %s)", err, stderr.String())
	}
	want := []string{
		"window-gained-focus(w)",
		"window-activated(w)",
		"focus-gained(a)",
		"focus-lost(a opposite=b)",
		"focus-gained(b opposite=a)",
	}
	got := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("events:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestRunScene_JSON(t *testing.T) {
	path := writeFile(t, "scene.yaml", "windows: [{name: w, children: [{name: a}]}]\nsteps: [{op: activate, target: w}]\n")
	var stdout, stderr bytes.Buffer
	if err := dispatch(context.Background(), []string{"run", "-json", "-config", quietConfig(t), path}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	dec := json.NewDecoder(&stdout)
	var kinds []event.Kind
	for dec.More() {
		var ev event.Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 3 || kinds[2] != event.FocusGained {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestRunScene_FailedChecksExitNonZero(t *testing.T) {
	path := writeFile(t, "scene.yaml", `
windows:
  - name: w
    children:
      - name: a
        enabled: false
steps:
  - op: activate
    target: w
  - op: request
    target: a
    expect: granted
`)
	var stdout, stderr bytes.Buffer
	err := dispatch(context.Background(), []string{"run", "-scene", path, "-config", quietConfig(t)}, &stdout, &stderr)
	if got := exitCodeForError(err); got != exitFailed {
		t.Fatalf("exit code = %d, want %d (err %v)", got, exitFailed, err)
	}
	if !strings.Contains(stderr.String(), "FAIL step 1 request a") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunScene_RequiresScene(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), []string{"run"}, &out, &out)
	if got := exitCodeForError(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d", got, exitUsage)
	}
}

func TestDemoSceneIsValid(t *testing.T) {
	s, err := scene.Parse(demoScene)
	if err != nil {
		t.Fatalf("demo scene: %v", err)
	}
	if len(s.Windows) != 1 || s.Windows[0].Name != "login" {
		t.Errorf("unexpected demo windows: %+v", s.Windows)
	}
}

func TestRunScene_InvalidSceneIsDataError(t *testing.T) {
	path := writeFile(t, "scene.yaml", "windows: [{name: none}]\n")
	var stdout, stderr bytes.Buffer
	err := dispatch(context.Background(), []string{"run", "-config", quietConfig(t), path}, &stdout, &stderr)
	if got := exitCodeForError(err); got != exitData {
		t.Errorf("exit code = %d, want %d (err %v)", got, exitData, err)
	}
}

func TestLogs_PrintsTail(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewLogger(dir, "s1")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	for _, name := range []string{"first", "second", "third"} {
		_ = logger.Error(logging.CategoryNative, "publish.failed", name, map[string]any{"node": "#1"})
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	cfg := writeFile(t, "config.yaml", "logging:\n  dir: "+dir+"\n")

	var stdout, stderr bytes.Buffer
	if err := dispatch(context.Background(), []string{"logs", "-n", "2", "-config", cfg}, &stdout, &stderr); err != nil {
		t.Fatalf("logs: %v (stderr %s)", err, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "publish.failed: second node=#1") || !strings.Contains(lines[1], "third") {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestLogs_RequiresDirOrFile(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), []string{"logs", "-config", quietConfig(t)}, &out, &out)
	if got := exitCodeForError(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d", got, exitUsage)
	}
}

type stateSink struct{}

func (stateSink) NativeWindowActivated(component.NodeID)   {}
func (stateSink) NativeWindowDeactivated(component.NodeID) {}
func (stateSink) NativeFocusChanged(component.NodeID) bool { return false }
func (stateSink) FocusOwner() component.NodeID             { return 3 }
func (stateSink) FocusedWindow() component.NodeID          { return 1 }
func (stateSink) ActiveWindow() component.NodeID           { return 1 }

func TestPrintState(t *testing.T) {
	mb := bus.NewMemoryBus()
	defer mb.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := native.NewBusBridge(mb, "", "tk-9", nil)
	if err := bridge.Attach(ctx, stateSink{}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer bridge.Close()

	var out bytes.Buffer
	if err := printState(ctx, &out, mb, "", "", time.Second, false); err != nil {
		t.Fatalf("state: %v", err)
	}
	for _, want := range []string{"toolkit tk-9", "focus owner:    #3", "active window:  #1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
