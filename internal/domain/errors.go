// Package domain defines core types, interfaces, and errors for the study
// groups service.
package domain

import "fmt"

// NotFoundError indicates a referenced group or participant does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a uniqueness conflict (e.g., duplicate membership).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// CapacityError indicates a group is at its student limit.
type CapacityError struct {
	Message string
}

func (e *CapacityError) Error() string { return e.Message }

// AccessDeniedError indicates the caller is not the group's organizer.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrCapacity creates a CapacityError with a formatted message.
func ErrCapacity(format string, args ...interface{}) *CapacityError {
	return &CapacityError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}
