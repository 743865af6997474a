package native

import (
	"fmt"
	"sync"

	"github.com/apache/harmony-sub021/pkg/component"
)

// Command is one recorded bridge call.
type Command struct {
	Name   string
	Window component.NodeID
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.Window)
}

// Recorder is an in-memory Bridge that remembers every command. Nothing is
// confirmed back; tests and scenes drive the Sink themselves.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Activate(window component.NodeID) {
	r.record(CommandActivate, window)
}

func (r *Recorder) SetNativeInputFocus(window component.NodeID) {
	r.record(CommandSetNativeInputFocus, window)
}

func (r *Recorder) record(name string, window component.NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Name: name, Window: window})
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Reset forgets recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
