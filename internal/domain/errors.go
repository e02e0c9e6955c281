package domain

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted indicates every worker slot is occupied
var ErrResourceExhausted = errors.New("no free worker slot")

// ErrNoTasks indicates the input produced nothing to fetch
var ErrNoTasks = errors.New("task list is empty")

// DiscoveryError means the listing could not be fetched or parsed.
// It aborts the whole run before anything is dispatched.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("link discovery failed for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// DispatchError means a worker could not be started for a task.
type DispatchError struct {
	Task Task
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("could not start worker for %s: %v", e.Task.URL, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TransferError is a network or disk failure inside a single download.
type TransferError struct {
	URL string
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
