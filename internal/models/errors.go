package models

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks an operation attempted before the remote boundary is
// ready (identity not yet resolved, session not started). It is a "not ready"
// signal, not a failure: callers suppress the operation and wait.
var ErrUnavailable = errors.New("remote boundary not available")

// RemoteError wraps a failed remote call. Queries retain it as error state
// alongside the last good value; mutations surface it to the caller and skip
// all cache invalidation so prior state stays intact for a retry.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps err as a remote-call failure for the named operation.
func NewRemoteError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Err: err}
}

// DataError marks a locally detected inconsistency in server data, such as a
// chat-list entry whose participants exclude the viewer. It is defensive:
// logged and reported, never allowed to crash the engine.
type DataError struct {
	Detail string
}

func (e *DataError) Error() string {
	return "inconsistent data: " + e.Detail
}

// NewDataError builds a DataError with a formatted detail string.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Detail: fmt.Sprintf(format, args...)}
}
