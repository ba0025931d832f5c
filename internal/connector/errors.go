package connector

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolAbsent is returned when a named pool was never created or
	// failed its initial connection.
	ErrPoolAbsent = errors.New("pool not connected")

	// ErrPoolExists is returned when a second pool is registered under a
	// name that already holds one.
	ErrPoolExists = errors.New("pool already exists")

	// ErrConfiguration records a pool skipped for missing environment.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnectivity records a pool whose initial connection failed.
	ErrConnectivity = errors.New("connectivity error")
)

// AbsentError reports why a named pool is unavailable. It matches both
// ErrPoolAbsent and its recorded reason through errors.Is.
type AbsentError struct {
	Name   string
	Reason error
}

func (e *AbsentError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("pool %q: %v", e.Name, ErrPoolAbsent)
	}
	return fmt.Sprintf("pool %q: %v: %v", e.Name, ErrPoolAbsent, e.Reason)
}

func (e *AbsentError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrPoolAbsent}
	}
	return []error{ErrPoolAbsent, e.Reason}
}
