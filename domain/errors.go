package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks locally invalid input. It never reaches the backend.
	ErrValidation = errors.New("validation failed")
	ErrTransport  = errors.New("backend unreachable")
	ErrRejected   = errors.New("backend rejected request")
)

// TransportError reports a call that did not produce a usable backend answer:
// network failure, timeout, open circuit or a non-2xx status without a message.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// BackendRejection is an explicit failure answer from a reachable backend.
type BackendRejection struct {
	Op      string
	Status  int
	Message string
}

func (e *BackendRejection) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *BackendRejection) Is(target error) bool { return target == ErrRejected }
