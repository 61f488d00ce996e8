package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoEntryPoint is returned when a script does not define
	// provide_code_actions.
	ErrNoEntryPoint = errors.New("lua script does not define " + EntryPoint)

	// ErrInvalidResult is returned when a script returns something other
	// than an array of action tables.
	ErrInvalidResult = errors.New("invalid lua result")
)

// ScriptError is a runtime error raised by a script.
type ScriptError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
