package load

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches any ConnectionError via errors.Is.
	ErrConnection = errors.New("destination unreachable")

	// ErrWrite matches any WriteError via errors.Is.
	ErrWrite = errors.New("destination write failed")
)

// ConnectionError is returned when the destination cannot be reached before
// any write is attempted.
type ConnectionError struct {
	Destination Destination
	Err         error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Destination, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// WriteError is returned when a drop, insert or swap fails. LiveTouched
// reports whether the live collection may have been modified: with the swap
// strategy it is always false, with drop-insert the live collection may be
// left empty or partially loaded since there is no rollback.
type WriteError struct {
	Op          string
	Destination Destination
	Inserted    int
	LiveTouched bool
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s (inserted %d, live modified: %t): %v",
		e.Op, e.Destination, e.Inserted, e.LiveTouched, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }
