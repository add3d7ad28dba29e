// ABOUTME: Error values reported by the collector, root stack and handles
// ABOUTME: Consistency violations carry the offending slot and state

package gc

import (
	"errors"
	"fmt"
)

var (
	// ErrRootStackOverflow is returned when pushing onto a full root stack
	ErrRootStackOverflow = errors.New("root stack overflow")

	// ErrRootStackUnderflow is returned when popping an empty root stack
	ErrRootStackUnderflow = errors.New("root stack underflow")

	// ErrNotRooted is returned when unrooting a reference with no root entry
	ErrNotRooted = errors.New("object is not rooted")

	// ErrReclaimed is returned (or panicked with) when touching a reclaimed object
	ErrReclaimed = errors.New("object has been reclaimed")

	// ErrReleased is returned when rooting through a released handle
	ErrReleased = errors.New("handle has been released")

	// ErrForeignHandle is returned when a handle is passed to a collector that did not allocate it
	ErrForeignHandle = errors.New("handle belongs to another collector")

	// ErrCollecting is returned when a destructor calls back into the
	// collector while a sweep is running
	ErrCollecting = errors.New("collection in progress")

	// ErrClosed is returned when allocating from a closed collector
	ErrClosed = errors.New("collector is closed")

	// ErrInternalConsistency is the sentinel wrapped by every InconsistencyError
	ErrInternalConsistency = errors.New("internal consistency error")
)

// InconsistencyError reports registry or root bookkeeping that violates the
// object life cycle, such as a reclaimed object still linked in the registry.
type InconsistencyError struct {
	Op    string // mark, sweep, link or release
	Slot  int
	State State
	Err   error // underlying cause, may be nil
}

func (e *InconsistencyError) Error() string {
	msg := fmt.Sprintf("%v during %s: slot %d in state %s", ErrInternalConsistency, e.Op, e.Slot, e.State)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *InconsistencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInternalConsistency}
	}
	return []error{ErrInternalConsistency, e.Err}
}
