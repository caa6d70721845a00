// Package matcherrors provides sentinel and custom error types for the
// matching engine. Pool and availability conditions are structured "no result"
// outcomes, distinguishable from computation or storage errors.
package matcherrors

import "fmt"

// ErrNoResponses is a sentinel for "no response data exists at all".
// Callers render an empty-result state; this is not fatal.
var ErrNoResponses = &NoResponsesError{}

// NoResponsesError reports that the response repository holds no usable data.
type NoResponsesError struct {
	Message string
}

// NewNoResponsesError creates a NoResponsesError with a custom message.
func NewNoResponsesError(message string) *NoResponsesError {
	return &NoResponsesError{Message: message}
}

// Error implements the error interface.
func (e *NoResponsesError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "no questionnaire responses available"
}

// Is implements errors.Is comparison by type.
func (e *NoResponsesError) Is(target error) bool {
	_, ok := target.(*NoResponsesError)
	return ok
}

// ErrInsufficientPool is a sentinel for a matching round loop that cannot
// start because fewer than two eligible users exist.
var ErrInsufficientPool = &InsufficientPoolError{}

// InsufficientPoolError reports a too-small unmatched pool. It is a reported
// precondition failure, not a fatal error.
type InsufficientPoolError struct {
	Available int
}

// NewInsufficientPoolError creates an InsufficientPoolError recording how many
// eligible users were available.
func NewInsufficientPoolError(available int) *InsufficientPoolError {
	return &InsufficientPoolError{Available: available}
}

// Error implements the error interface.
func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient users for matching: %d available, need at least 2", e.Available)
}

// Is implements errors.Is comparison by type.
func (e *InsufficientPoolError) Is(target error) bool {
	_, ok := target.(*InsufficientPoolError)
	return ok
}

// ErrNotFound represents a "not found" error for a requested resource.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Resource != "" {
		return e.Resource + " not found"
	}
	return "resource not found"
}

// Is implements errors.Is comparison by type.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrValidation represents a validation error for client input.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for a specific field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		if e.Field != "" {
			return fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		return e.Message
	}
	return "validation failed"
}

// Is implements errors.Is comparison by type.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}
