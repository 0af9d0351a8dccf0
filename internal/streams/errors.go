package streams

import (
	"errors"
	"fmt"
)

// ErrEOFStream is returned by DataQueue.Read once the queue is empty and EOF
// has been signaled. It is a condition, not a failure: byte streams report the
// same state with an empty return, and ChunksQueue converts this sentinel back
// into one for API symmetry.
var ErrEOFStream = errors.New("eof stream")

// UsageError reports a violation of the stream API contract: a second
// concurrent blocking read, feeding data after EOF, a non-blocking read while
// a waiter is pending, or writing without holding the writer lease.
// Usage errors are immediate and never retried.
type UsageError struct {
	Op  string // the operation that was misused, e.g. "ReadLine"
	Msg string
}

// Error returns a string representation of the UsageError.
func (e *UsageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("stream usage error: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("stream usage error: %s", e.Msg)
}

// NewUsageError creates a new UsageError for the named operation.
func NewUsageError(op, msg string) *UsageError {
	return &UsageError{Op: op, Msg: msg}
}

// LimitExceededError reports that ReadLine accumulated more than the
// configured limit without finding a newline. The error is terminal for that
// call only; the stream remains usable for subsequent reads.
type LimitExceededError struct {
	Limit int
}

// Error returns a string representation of the LimitExceededError.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("line is too long (limit %d bytes)", e.Limit)
}

// NewLimitExceededError creates a new LimitExceededError.
func NewLimitExceededError(limit int) *LimitExceededError {
	return &LimitExceededError{Limit: limit}
}

// IncompleteReadError reports that EOF arrived before ReadExactly collected
// the requested byte count. Partial holds the bytes collected so far, always
// fewer than Expected.
type IncompleteReadError struct {
	Partial  []byte
	Expected int
}

// Error returns a string representation of the IncompleteReadError.
func (e *IncompleteReadError) Error() string {
	return fmt.Sprintf("incomplete read: %d bytes read, %d expected", len(e.Partial), e.Expected)
}

// NewIncompleteReadError creates a new IncompleteReadError carrying the
// partial bytes collected before EOF.
func NewIncompleteReadError(partial []byte, expected int) *IncompleteReadError {
	return &IncompleteReadError{Partial: partial, Expected: expected}
}
