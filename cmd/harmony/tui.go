package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/apache/harmony-sub021/pkg/component"
	"github.com/apache/harmony-sub021/pkg/event"
	"github.com/apache/harmony-sub021/pkg/focus"
	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/native"
	"github.com/apache/harmony-sub021/pkg/scene"
	"github.com/apache/harmony-sub021/pkg/toolkit"
)

//go:embed demo.yaml
var demoScene []byte

const tuiHelp = "Tab/Shift+Tab move  d enter group  u leave group  x disable  h hide group  q quit"

func runTUICommand(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (defaults to ~/.harmony and ./.harmony)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	var opts []toolkit.Option
	if cfg.Logging.Dir == "" {
		// The screen owns the terminal; logs go to the log dir or nowhere.
		opts = append(opts, toolkit.WithLogger(logging.Nop()))
	}
	tk, err := toolkit.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer tk.Close()

	s, err := scene.Parse(demoScene)
	if err != nil {
		return err
	}
	names, err := scene.Build(tk.Coordinator(), tk.Manager(), s)
	if err != nil {
		return err
	}
	window := names["login"]

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := &demo{tk: tk, names: names}
	pump := native.NewTerminalPump(screen, tk, tk.Coordinator(), window, tk.Logger())
	pump.OnKey = d.onKey
	pump.Redraw = d.draw
	unsubscribe := tk.Events().Subscribe(func(ev event.Event) {
		d.mu.Lock()
		d.last = ev
		d.mu.Unlock()
		pump.Refresh()
	})
	defer unsubscribe()

	// Terminals report focus only on change, so start active.
	tk.NativeWindowActivated(window)

	return tk.Run(ctx, func(ctx context.Context) error {
		defer cancel()
		return pump.Run(ctx)
	})
}

type demo struct {
	tk     *toolkit.Toolkit
	names  scene.Names
	hidden bool

	mu   sync.Mutex
	last event.Event
}

// onKey handles keys the traversal bindings did not consume.
func (d *demo) onKey(ev *tcell.EventKey) bool {
	m := d.tk.Manager()
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}
	switch ev.Rune() {
	case 'q':
		return false
	case 'd':
		m.DownFocusCycle(d.names["options"])
	case 'u':
		m.UpFocusCycle(component.NoNode)
	case 'x':
		if owner := m.FocusOwner(); owner != component.NoNode {
			_ = m.SetEnabled(owner, false)
		}
	case 'h':
		d.hidden = !d.hidden
		_ = m.SetVisible(d.names["options"], !d.hidden)
	}
	return true
}

func (d *demo) draw(s tcell.Screen) {
	s.Clear()
	c := d.tk.Coordinator()
	owner := c.FocusOwner()
	active := c.ActiveWindow()
	root := c.CurrentFocusCycleRoot()

	names := make([]string, 0, len(d.names))
	for name := range d.names {
		names = append(names, name)
	}
	sort.Strings(names)

	c.View(func(t *component.Tree) {
		for _, name := range names {
			id := d.names[name]
			if t.Kind(id) == component.KindWindow || !t.Showing(id) {
				continue
			}
			style := tcell.StyleDefault
			switch {
			case id == owner:
				style = style.Reverse(true)
			case !t.Enabled(id):
				style = style.Dim(true)
			case id == root:
				style = style.Underline(true)
			}
			r := t.Bounds(id)
			put(s, r.X, r.Y, "["+name+"]", style)
		}
	})

	status := fmt.Sprintf("active=%s owner=%s cycle=%s", d.names.NameOf(active), d.names.NameOf(owner), d.names.NameOf(root))
	_, h := s.Size()
	put(s, 0, 0, "harmony focus demo", tcell.StyleDefault.Bold(true))
	put(s, 0, h-3, status, tcell.StyleDefault)
	if line := d.lastLine(); line != "" {
		put(s, 0, h-2, "last: "+line, tcell.StyleDefault.Dim(true))
	}
	put(s, 0, h-1, tuiHelp, tcell.StyleDefault.Dim(true))
	s.Show()
}

func (d *demo) lastLine() string {
	d.mu.Lock()
	last := d.last
	d.mu.Unlock()
	if last.Kind == 0 {
		return ""
	}
	res := scene.Result{Names: d.names, Events: []event.Event{last}}
	return res.Lines()[0]
}

func put(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

var _ native.KeyDispatcher = (*focus.Coordinator)(nil)
