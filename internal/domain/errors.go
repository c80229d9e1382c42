// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT transport errors.
// Adapters map them to HTTP statuses, CLI messages or TUI status lines.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity or storage key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a required field is empty or otherwise invalid.
	ErrValidation = errors.New("validation failed")

	// ErrParse indicates persisted, imported or remote data could not be decoded.
	ErrParse = errors.New("parse failed")

	// ErrNetwork indicates the remote quote source could not be reached or answered badly.
	ErrNetwork = errors.New("network failure")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ParseError describes data that could not be decoded into quotes.
// Source names where the bytes came from ("storage", "import", "remote").
type ParseError struct {
	Source string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s data: %s", e.Source, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// NewParseError creates a parse error with context.
func NewParseError(source, reason string, cause error) error {
	return &ParseError{Source: source, Reason: reason, Cause: cause}
}

// NetworkError provides context for remote source failures.
type NetworkError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unreachable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unreachable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NetworkError) Unwrap() error {
	return ErrNetwork
}

// NewNetworkError creates a network error with context.
func NewNetworkError(service, reason string) error {
	return &NetworkError{Service: service, Reason: reason}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsParse checks if an error is a parse error.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsNetwork checks if an error is a network error.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
