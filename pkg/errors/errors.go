// Package errors provides structured error types for sseqchart.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the chart model, the wire protocol and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages that name the offending field
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The chart model reports four kinds of failures:
//
//   - CONSTRUCTION: a mandatory field (degree, source_uuid, ...) is missing
//   - INCONSISTENT_FIELD: an update tries to change uuid or degree
//   - UNKNOWN_TYPE: a payload carries a "type" tag absent from the registry
//   - DANGLING_REFERENCE: an edge names a class that is not in the chart
//
// The remaining codes cover input validation and internal failures.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConstruction, "missing mandatory field %q", "degree")
//	if errors.Is(err, errors.ErrCodeConstruction) {
//	    // reject the construction call
//	}
//
//	// Wrap existing errors, naming the field that caused them
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "bad value").WithField("visible")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Chart model errors
	ErrCodeConstruction      Code = "CONSTRUCTION"
	ErrCodeInconsistentField Code = "INCONSISTENT_FIELD"
	ErrCodeUnknownType       Code = "UNKNOWN_TYPE"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"
	ErrCodeInvalidPageKey    Code = "INVALID_PAGE_KEY"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Field   string // Offending field, if any
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField records the offending field name and returns e.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
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

// Is reports whether any *Error in err's chain has the given code.
// Joined errors are searched as well.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
		return false
	default:
		return Is(errors.Unwrap(err), code)
	}
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the chain holds no *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetField extracts the first field name recorded in the chain.
func GetField(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Field != "" {
			return e.Field
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
		if e.Field != "" {
			return e.Field + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}
