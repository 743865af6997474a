// Package scene loads scripted focus scenarios from YAML: a set of windows
// with their component trees and a list of steps to replay against a focus
// manager.
package scene

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apache/harmony-sub021/pkg/component"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

// Scene is a window tree plus the steps to run against it.
type Scene struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Windows     []Window `yaml:"windows"`
	Steps       []Step   `yaml:"steps"`
}

// Window describes one top-level. Windows are created in order, so an
// owner must appear before the windows it owns.
type Window struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind,omitempty"` // frame (default), dialog, window
	Owner  string `yaml:"owner,omitempty"`
	Hidden bool   `yaml:"hidden,omitempty"`
	// Focusable maps to the focusable window state; nil keeps the default.
	Focusable *bool  `yaml:"focusable,omitempty"`
	Policy    string `yaml:"policy,omitempty"`
	Children  []Node `yaml:"children,omitempty"`
}

// Node is a leaf or scope inside a window.
type Node struct {
	Name      string          `yaml:"name"`
	Kind      string          `yaml:"kind,omitempty"` // leaf (default), scope
	Focusable *bool           `yaml:"focusable,omitempty"`
	Enabled   *bool           `yaml:"enabled,omitempty"`
	Visible   *bool           `yaml:"visible,omitempty"`
	CycleRoot bool            `yaml:"cycle_root,omitempty"`
	Policy    string          `yaml:"policy,omitempty"`
	Bounds    *component.Rect `yaml:"bounds,omitempty"`
	Children  []Node          `yaml:"children,omitempty"`
}

// Step is one scripted operation.
type Step struct {
	Op        string `yaml:"op"`
	Target    string `yaml:"target,omitempty"`
	Temporary bool   `yaml:"temporary,omitempty"`
	// Value is the flag for set_focusable and iconify.
	Value *bool `yaml:"value,omitempty"`
	// Expect is "granted" or "refused" for operations that report an
	// outcome; empty skips the check.
	Expect string `yaml:"expect,omitempty"`
	// Owner, when set, is compared with the actual focus owner after the
	// step. "none" expects no owner.
	Owner string `yaml:"owner,omitempty"`
}

// Step operations.
const (
	OpActivate        = "activate"
	OpDeactivate      = "deactivate"
	OpNativeFocus     = "native_focus"
	OpRequest         = "request"
	OpRequestInWindow = "request_in_window"
	OpClear           = "clear"
	OpShow            = "show"
	OpHide            = "hide"
	OpEnable          = "enable"
	OpDisable         = "disable"
	OpSetFocusable    = "set_focusable"
	OpDetach          = "detach"
	OpRemove          = "remove"
	OpNext            = "next"
	OpPrevious        = "previous"
	OpUpCycle         = "up_cycle"
	OpDownCycle       = "down_cycle"
	OpDispose         = "dispose"
	OpIconify         = "iconify"
	OpToFront         = "to_front"
	OpFlush           = "flush"
)

// targetless ops may omit Target; traversal then starts from the current
// focus owner.
var knownOps = map[string]bool{
	OpActivate: false, OpDeactivate: false, OpNativeFocus: false,
	OpRequest: false, OpRequestInWindow: false, OpClear: true,
	OpShow: false, OpHide: false, OpEnable: false, OpDisable: false,
	OpSetFocusable: false, OpDetach: false, OpRemove: false,
	OpNext: true, OpPrevious: true, OpUpCycle: true, OpDownCycle: false,
	OpDispose: false, OpIconify: false, OpToFront: false, OpFlush: true,
}

const noneOwner = "none"

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, herrors.Wrap(err, herrors.ErrCodeSceneInvalid, "failed to read scene").
			WithContext("path", path)
	}
	s, err := Parse(data)
	if err != nil {
		if coded, ok := err.(*herrors.Error); ok {
			return nil, coded.WithContext("path", path)
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes and validates a scene document.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, herrors.Wrap(err, herrors.ErrCodeSceneInvalid, "failed to parse scene")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names, kinds, owners and step operations.
func (s *Scene) Validate() error {
	names := make(map[string]bool)
	windows := make(map[string]bool)
	var checkNode func(n Node) error
	checkNode = func(n Node) error {
		if err := claim(names, n.Name); err != nil {
			return err
		}
		switch strings.ToLower(n.Kind) {
		case "", "leaf":
			if len(n.Children) > 0 {
				return invalid("leaf cannot have children", "node", n.Name)
			}
		case "scope":
		default:
			return invalid("unknown node kind", "kind", n.Kind)
		}
		for _, c := range n.Children {
			if err := checkNode(c); err != nil {
				return err
			}
		}
		return nil
	}

	for _, w := range s.Windows {
		if err := claim(names, w.Name); err != nil {
			return err
		}
		if _, ok := windowKind(w.Kind); !ok {
			return invalid("unknown window kind", "kind", w.Kind)
		}
		if w.Owner != "" && !windows[w.Owner] {
			return invalid("owner must be declared before the windows it owns", "window", w.Name)
		}
		windows[w.Name] = true
		for _, c := range w.Children {
			if err := checkNode(c); err != nil {
				return err
			}
		}
	}

	for i, st := range s.Steps {
		optional, ok := knownOps[st.Op]
		if !ok {
			return invalid("unknown step op", "op", st.Op).WithContext("step", i)
		}
		if st.Target == "" && !optional {
			return invalid("step needs a target", "op", st.Op).WithContext("step", i)
		}
		if st.Target != "" && !names[st.Target] {
			return invalid("step targets an undeclared node", "target", st.Target).WithContext("step", i)
		}
		if st.Owner != "" && st.Owner != noneOwner && !names[st.Owner] {
			return invalid("owner check names an undeclared node", "owner", st.Owner).WithContext("step", i)
		}
		switch st.Expect {
		case "", "granted", "refused":
		default:
			return invalid("expect must be granted or refused", "expect", st.Expect).WithContext("step", i)
		}
	}
	return nil
}

func claim(names map[string]bool, name string) error {
	if name == "" {
		return invalid("every window and node needs a name", "name", name)
	}
	if name == noneOwner {
		return invalid("reserved name", "name", name)
	}
	if names[name] {
		return invalid("duplicate name", "name", name)
	}
	names[name] = true
	return nil
}

func invalid(msg, key string, value any) *herrors.Error {
	return herrors.New(herrors.ErrCodeSceneInvalid, msg).WithContext(key, value)
}

func windowKind(s string) (component.WindowKind, bool) {
	switch strings.ToLower(s) {
	case "", "frame":
		return component.WindowFrame, true
	case "dialog":
		return component.WindowDialog, true
	case "window", "plain":
		return component.WindowPlain, true
	default:
		return 0, false
	}
}
