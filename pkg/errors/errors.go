// Package errors provides structured error types for forcegraph.
//
// Every failure the layout engine can report carries a machine-readable
// [Code], so the CLI, the HTTP service, and library callers can all decide
// how to react without string matching:
//
//   - INVALID_CONFIG: a simulation parameter was rejected at construction
//   - UNKNOWN_NODE: an operation referenced a node that was never added
//   - DIVERGENCE: positions or velocities stopped being finite mid-run
//   - INVALID_INPUT: malformed graph documents or option files
//
// # Usage
//
//	sim, err := physics.New(g, cfg)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // fall back to a static layout
//	}
//
//	var unknown *errors.UnknownNodeError
//	if stderrors.As(err, &unknown) {
//	    log.Warn("missing node", "id", unknown.ID)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeUnknownNode  Code = "UNKNOWN_NODE"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Simulation errors
	ErrCodeDivergence Code = "DIVERGENCE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// coder is implemented by typed errors that know their own code.
type coder interface {
	Code() Code
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the error chain and matches the first *Error or typed error
// that carries a code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if nothing in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ConfigurationError reports a simulation parameter that failed validation.
// It is fatal for the run being constructed and should never be retried
// with the same configuration.
type ConfigurationError struct {
	Field  string // Config field name, e.g. "DragCoefficient"
	Reason string // What the field must satisfy
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Code returns the error code for this error type.
func (e *ConfigurationError) Code() Code {
	return ErrCodeInvalidConfig
}

// UnknownNodeError reports a reference to a node that was never added.
type UnknownNodeError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.ID)
}

// Code returns the error code for this error type.
func (e *UnknownNodeError) Code() Code {
	return ErrCodeUnknownNode
}

// DivergenceError reports that the simulation produced a non-finite
// position or velocity. The simulator stops at the step that diverged.
type DivergenceError struct {
	Step   int    // 1-based step that produced the non-finite value
	NodeID string // First node found with a non-finite state
}

// Error implements the error interface.
func (e *DivergenceError) Error() string {
	return fmt.Sprintf("simulation diverged at step %d (node %q)", e.Step, e.NodeID)
}

// Code returns the error code for this error type.
func (e *DivergenceError) Code() Code {
	return ErrCodeDivergence
}
