package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a namespaced error code for clausegraph errors.
type ErrorCode string

// Analysis error codes
const (
	CONNECTION_FAILED       ErrorCode = "CONNECTION_FAILED"
	CONNECTION_CLOSED       ErrorCode = "CONNECTION_CLOSED"
	VALIDATION_FAILED       ErrorCode = "VALIDATION_FAILED"
	BUILD_FAILED            ErrorCode = "BUILD_FAILED"
	TRANSIENT_FAILURE       ErrorCode = "TRANSIENT_FAILURE"
	EXTRACTION_FAILED       ErrorCode = "EXTRACTION_FAILED"
	COMPLIANCE_CHECK_FAILED ErrorCode = "COMPLIANCE_CHECK_FAILED"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Run history database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
	DB_NOT_FOUND        ErrorCode = "DB_NOT_FOUND"
)

// Error is a structured error carrying a code, a message, a detail map for
// observability, a retryability hint and an optional cause.
type Error struct {
	Code      ErrorCode
	Message   string
	Details   map[string]any
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message: cause | k=v, k=v".
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		b.WriteString(" | ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithDetail returns e after setting a detail key.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewError creates a non-retryable error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewRetryableError creates a retryable error with the given code and message.
func NewRetryableError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable error wrapping cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewConnectionError reports that the graph database could not be reached or
// authenticated against. The target URI is recorded in the details.
func NewConnectionError(message, uri string, cause error) *Error {
	e := WrapError(CONNECTION_FAILED, message, cause)
	if uri != "" {
		e.WithDetail("uri", uri)
	}
	return e
}

// NewValidationError reports malformed input. It is raised before any
// database call and is never retried.
func NewValidationError(message, field, value string) *Error {
	e := NewError(VALIDATION_FAILED, message)
	if field != "" {
		e.WithDetail("field", field)
	}
	if value != "" {
		e.WithDetail("value", value)
	}
	return e
}

// NewBuildError reports a mutation that reached the database but failed for
// a non-transient reason.
func NewBuildError(message, nodeType, nodeID string, cause error) *Error {
	e := WrapError(BUILD_FAILED, message, cause)
	if nodeType != "" {
		e.WithDetail("node_type", nodeType)
	}
	if nodeID != "" {
		e.WithDetail("node_id", nodeID)
	}
	return e
}

// NewTransientError reports a temporary unavailability worth retrying.
func NewTransientError(message string, cause error) *Error {
	e := WrapError(TRANSIENT_FAILURE, message, cause)
	e.Retryable = true
	return e
}

// NewExtractionError reports an unexpected failure inside extraction. The
// text sample is truncated to 100 characters.
func NewExtractionError(message, textSample string, cause error) *Error {
	e := WrapError(EXTRACTION_FAILED, message, cause)
	if textSample != "" {
		if len(textSample) > 100 {
			textSample = textSample[:100] + "..."
		}
		e.WithDetail("text_sample", textSample)
	}
	return e
}

// NewComplianceError reports a failed compliance query.
func NewComplianceError(message, query string, cause error) *Error {
	e := WrapError(COMPLIANCE_CHECK_FAILED, message, cause)
	if query != "" {
		e.WithDetail("query", query)
	}
	return e
}

// IsRetryable reports whether any *Error in the chain is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Retryable {
			return true
		}
		err = e.Cause
	}
	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// DetailsOf returns the details of the outermost *Error in the chain, or nil.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
