package focus

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Action is a traversal triggered by a key.
type Action uint8

const (
	ActionNone Action = iota
	ActionForward
	ActionBackward
	ActionUpCycle
	ActionDownCycle
)

var actionNames = map[string]Action{
	"forward":    ActionForward,
	"backward":   ActionBackward,
	"up_cycle":   ActionUpCycle,
	"down_cycle": ActionDownCycle,
}

// ParseAction maps a config name to an Action.
func ParseAction(s string) (Action, error) {
	if a, ok := actionNames[s]; ok {
		return a, nil
	}
	return ActionNone, fmt.Errorf("unknown traversal action %q", s)
}

// KeyStroke identifies a key press.
type KeyStroke struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

// Keys binds key strokes to traversal actions.
type Keys map[KeyStroke]Action

// DefaultKeys binds Tab forward and Shift+Tab backward.
func DefaultKeys() Keys {
	return Keys{
		{Key: tcell.KeyTab}:     ActionForward,
		{Key: tcell.KeyBacktab}: ActionBackward,
	}
}

// ParseKeyStroke parses names like "Tab", "Ctrl+Up" or "Alt+n".
func ParseKeyStroke(s string) (KeyStroke, error) {
	var ks KeyStroke
	parts := strings.Split(s, "+")
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "ctrl":
			ks.Mod |= tcell.ModCtrl
		case "shift":
			ks.Mod |= tcell.ModShift
		case "alt":
			ks.Mod |= tcell.ModAlt
		case "meta":
			ks.Mod |= tcell.ModMeta
		default:
			return KeyStroke{}, fmt.Errorf("unknown modifier %q in %q", mod, s)
		}
	}
	name := parts[len(parts)-1]
	for k, n := range tcell.KeyNames {
		if strings.EqualFold(n, name) {
			ks.Key = k
			return ks, nil
		}
	}
	if r := []rune(name); len(r) == 1 {
		ks.Key = tcell.KeyRune
		ks.Rune = r[0]
		return ks, nil
	}
	return KeyStroke{}, fmt.Errorf("unknown key %q", s)
}

// Lookup returns the action bound to a key event.
func (k Keys) Lookup(ev *tcell.EventKey) Action {
	ks := KeyStroke{Key: ev.Key(), Mod: ev.Modifiers()}
	if ks.Key == tcell.KeyRune {
		ks.Rune = ev.Rune()
	}
	if a, ok := k[ks]; ok {
		return a
	}
	// Control keys may arrive with ModCtrl already folded into the key.
	if ks.Mod&tcell.ModCtrl != 0 {
		ks.Mod &^= tcell.ModCtrl
		return k[ks]
	}
	return ActionNone
}

// SetKeys replaces the traversal key bindings.
func (c *Coordinator) SetKeys(k Keys) {
	c.keysMu.Lock()
	defer c.keysMu.Unlock()
	c.keys = k
}

// DispatchKey runs the traversal bound to ev and reports whether the key
// was consumed.
func (c *Coordinator) DispatchKey(ev *tcell.EventKey) bool {
	c.keysMu.RLock()
	action := c.keys.Lookup(ev)
	c.keysMu.RUnlock()

	switch action {
	case ActionForward:
		c.FocusNextComponent(0)
	case ActionBackward:
		c.FocusPreviousComponent(0)
	case ActionUpCycle:
		c.UpFocusCycle(0)
	case ActionDownCycle:
		c.DownFocusCycle(0)
	default:
		return false
	}
	return true
}
