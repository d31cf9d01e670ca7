// Package apierr defines the error taxonomy the control-plane API maps to
// HTTP status codes. Every error the core produces that should reach an
// HTTP caller is one of the types here; anything else maps to 500, the
// same status as Internal.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError means the caller's payload was malformed or semantically
// invalid.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError means an unknown service, wizard step, or container was
// referenced.
type NotFoundError struct {
	Kind string // "service", "step", "container"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ConflictError means an install was already in progress, or the caller
// requested something the current state can't support (e.g. testing a
// service with no health URL).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// RuntimeError means the container runtime was unreachable or an API call
// against it failed.
type RuntimeError struct {
	Cause error
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("runtime error: %v", e.Cause) }
func (e *RuntimeError) Unwrap() error { return e.Cause }

// StoreError means the external wizard-state key-value store was
// unreachable.
type StoreError struct {
	Cause error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error: %v", e.Cause) }
func (e *StoreError) Unwrap() error { return e.Cause }

// Stage identifies which step of a service's lifecycle failed.
type Stage string

const (
	StagePull   Stage = "pull"
	StageRun    Stage = "run"
	StageHealth Stage = "health"
)

// ServiceStartFailed is per-service and non-fatal to the installation run
// it occurred in: the coordinator records it against that service and
// continues with the rest of the closure.
type ServiceStartFailed struct {
	Service string
	Stage   Stage
	Cause   error
}

func (e *ServiceStartFailed) Error() string {
	return fmt.Sprintf("service %q failed at %s: %v", e.Service, e.Stage, e.Cause)
}
func (e *ServiceStartFailed) Unwrap() error { return e.Cause }

// Timeout means a health probe exceeded its budget.
type Timeout struct {
	Message string
}

func (e *Timeout) Error() string { return e.Message }

// Internal is anything unclassified.
type Internal struct {
	Cause error
}

func (e *Internal) Error() string { return fmt.Sprintf("internal error: %v", e.Cause) }
func (e *Internal) Unwrap() error { return e.Cause }

// InstallInProgress is a ConflictError raised when a second installation
// is requested while one is already running.
func InstallInProgress() error {
	return &ConflictError{Message: "an installation is already in progress"}
}

// HTTPStatus maps an error produced anywhere in the core to the status
// code the API layer should respond with. Errors that don't match a known
// type map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var conflictErr *ConflictError
	var runtimeErr *RuntimeError
	var storeErr *StoreError
	var timeoutErr *Timeout

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &runtimeErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusBadGateway
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
