package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine operations.
var (
	// ErrSessionNotFound indicates the session id is not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAlreadyRunning indicates a subprocess is already live for the
	// session; a second Send must not spawn an overlapping process.
	ErrAlreadyRunning = errors.New("session already has a running process")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine is closed")
)

// Error wraps engine errors with the failed operation.
type Error struct {
	Op        string // Operation that failed ("send", "spawn", "stop")
	SessionID string // Session the operation targeted, if any
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("engine %s [%s]: %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a new engine error.
func newError(op, sessionID string, err error) *Error {
	return &Error{Op: op, SessionID: sessionID, Err: err}
}
