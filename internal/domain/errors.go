package domain

import "fmt"

// Error types for consistent error handling across SpendLog.
// The backend maps them to HTTP statuses; the REST client builds them
// from HTTP statuses, so both sides speak the same taxonomy.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	switch {
	case e.Resource == "":
		return "Not found"
	case e.ID == "":
		return fmt.Sprintf("%s not found", e.Resource)
	default:
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
}

// ErrUnauthorized indicates a missing, invalid or expired bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Unauthorized"
}

// ErrForbidden indicates the caller may not act on the resource.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("Not authorized to %s", e.Action)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates a resource already exists.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	if e.Operation == "" {
		return "Request timeout"
	}
	return fmt.Sprintf("Request timeout: %s", e.Operation)
}

// ErrAPI is any other non-2xx answer from the SpendLog API.
// Detail carries the server's human-readable message.
type ErrAPI struct {
	StatusCode int
	Detail     string
}

func (e *ErrAPI) Error() string {
	if e.Detail == "" {
		return "An error occurred"
	}
	return e.Detail
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
