// Package errors carries coded errors for the configuration boundary of the
// toolkit. Protocol-internal refusals never surface here; they are reported
// as boolean results by the focus coordinator.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Tree construction errors
	ErrCodeUnknownNode ErrorCode = "UNKNOWN_NODE"
	ErrCodeWrongKind   ErrorCode = "WRONG_KIND"
	ErrCodeTreeCycle   ErrorCode = "TREE_CYCLE"
	ErrCodeAttached    ErrorCode = "ALREADY_ATTACHED"

	// Extension point errors
	ErrCodeInvalidPolicy  ErrorCode = "INVALID_POLICY"
	ErrCodeInvalidManager ErrorCode = "INVALID_MANAGER"

	// Configuration errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Scene errors
	ErrCodeSceneInvalid ErrorCode = "SCENE_INVALID"

	// Native bridge errors
	ErrCodeNativeBridge ErrorCode = "NATIVE_BRIDGE"

	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error represents a structured toolkit error
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Context    map[string]any
	Stack      []Frame
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New creates a new structured error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...any) *Error {
	e := New(code, fmt.Sprintf(format, args...))
	e.Stack = captureStack(2)
	return e
}

// Wrap wraps an existing error with a code. Wrapping nil returns nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
		Stack:      captureStack(2),
	}
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// StackTrace returns a formatted stack trace
func (e *Error) StackTrace() string {
	var sb strings.Builder

	sb.WriteString("Stack trace:\n")
	for i, frame := range e.Stack {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, frame.Function))
		sb.WriteString(fmt.Sprintf("     %s:%d\n", frame.File, frame.Line))
	}

	return sb.String()
}

func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr

	n := runtime.Callers(skip+1, pcs[:])
	frames := make([]Frame, 0, n)

	for i := 0; i < n; i++ {
		pc := pcs[i]
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		file, line := fn.FileLine(pc)

		frames = append(frames, Frame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}

// IsCode reports whether err, or any error it wraps, carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var coded *Error
		if !stderrors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Underlying
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var coded *Error
	if !stderrors.As(err, &coded) {
		return ErrCodeInternal
	}

	return coded.Code
}
