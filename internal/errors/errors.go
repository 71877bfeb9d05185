package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidArgument indicates a caller error (blank id, depth < 1, bad offset)
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// NotFound indicates an unknown project, method, or class
	NotFound ErrorCode = "NOT_FOUND"
	// StoreFailure indicates the document store failed a read, write or delete
	StoreFailure ErrorCode = "STORE_FAILURE"
	// ValidationFailed indicates one or more facts failed schema validation
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ExtractionFailed indicates the extraction front end could not produce facts
	ExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FactError is an error with a stable code, a message and an optional cause.
type FactError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new FactError
func New(code ErrorCode, message string, cause error) *FactError {
	return &FactError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *FactError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *FactError) Unwrap() error {
	return e.cause
}

// Is matches any FactError carrying the same code.
func (e *FactError) Is(target error) bool {
	t, ok := target.(*FactError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *FactError) WithDetails(details interface{}) *FactError {
	e.Details = details
	return e
}

// Invalid returns an InvalidArgument error.
func Invalid(format string, args ...interface{}) *FactError {
	return New(InvalidArgument, fmt.Sprintf(format, args...), nil)
}

// Missing returns a NotFound error for an entity of the given kind.
func Missing(kind, id string) *FactError {
	return New(NotFound, fmt.Sprintf("%s %q not found", kind, id), nil)
}

// Store wraps a persistence failure for operation op.
func Store(op string, cause error) *FactError {
	return New(StoreFailure, op, cause)
}

// CodeOf returns the code of the first FactError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var fe *FactError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return InternalError
}

// IsNotFound reports whether err carries the NotFound code.
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == NotFound
}

// IsInvalid reports whether err carries the InvalidArgument code.
func IsInvalid(err error) bool {
	return err != nil && CodeOf(err) == InvalidArgument
}
