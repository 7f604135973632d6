// Package errors provides the structured error type shared by the form
// engine and the API clients.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Form engine errors
const (
	ErrCodeFieldValidationFailed ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeStepValidationFailed  ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeNotOnFinalStep        ErrorCode = "NOT_ON_FINAL_STEP"
	ErrCodeUnknownField          ErrorCode = "UNKNOWN_FIELD"
	ErrCodeInvalidFieldValue     ErrorCode = "INVALID_FIELD_VALUE"
)

// Submission and transport errors
const (
	ErrCodeSubmissionInFlight  ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeSubmissionRejected  ErrorCode = "SUBMISSION_REJECTED"
	ErrCodeNetworkError        ErrorCode = "NETWORK_ERROR"
	ErrCodeRequestTimeout      ErrorCode = "REQUEST_TIMEOUT"
	ErrCodeResponseParseFailed ErrorCode = "RESPONSE_PARSE_FAILED"
)

// Auth, options and infrastructure errors
const (
	ErrCodeAuthFailed           ErrorCode = "AUTH_FAILED"
	ErrCodeSessionExpired       ErrorCode = "SESSION_EXPIRED"
	ErrCodeOptionsLoadFailed    ErrorCode = "OPTIONS_LOAD_FAILED"
	ErrCodeOptionsSchemaInvalid ErrorCode = "OPTIONS_SCHEMA_INVALID"
	ErrCodeAdminRequestFailed   ErrorCode = "ADMIN_REQUEST_FAILED"
	ErrCodeAuditWriteFailed     ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeConfigInvalid        ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// GenericSubmissionMessage is shown when neither the server nor the
// transport produced anything more specific.
const GenericSubmissionMessage = "An unexpected error occurred during submission"

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any *StandardError carrying the same code, so callers can use
// errors.Is(err, &StandardError{Code: ErrCodeNetworkError}).
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownFieldError creates a non-retryable error for a field the draft does not have.
func NewUnknownFieldError(field string) *StandardError {
	return newError(ErrCodeUnknownField, "Unknown form field", fmt.Sprintf("field: %s", field), false)
}

// NewInvalidFieldValueError creates a non-retryable error for a value of the wrong type.
func NewInvalidFieldValueError(field string, want string, got interface{}) *StandardError {
	return newError(ErrCodeInvalidFieldValue, "Invalid value for form field",
		fmt.Sprintf("field: %s, expected: %s, got: %T", field, want, got), false)
}

// NewFieldValidationFailedError carries per-field messages for a form that
// is not part of the stepped application (registration, password reset).
func NewFieldValidationFailedError(fieldErrors map[string]string) *StandardError {
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	err := newError(ErrCodeFieldValidationFailed, "Validation failed",
		fmt.Sprintf("fields: %s", strings.Join(fields, ",")), false)
	err.Metadata = map[string]interface{}{"errors": fieldErrors}
	return err
}

// NewStepValidationFailedError creates a non-retryable error carrying the failing fields.
func NewStepValidationFailedError(step int, fieldErrors map[string]string) *StandardError {
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	err := newError(ErrCodeStepValidationFailed, "Validation failed",
		fmt.Sprintf("step: %d, fields: %s", step, strings.Join(fields, ",")), false)
	err.Metadata = map[string]interface{}{"step": step, "errors": fieldErrors}
	return err
}

// NewNotOnFinalStepError is returned when submit is attempted before the review step.
func NewNotOnFinalStepError(step, final int) *StandardError {
	return newError(ErrCodeNotOnFinalStep, "Submission is only allowed from the final step",
		fmt.Sprintf("currentStep: %d, finalStep: %d", step, final), false)
}

// NewSubmissionInFlightError is returned on a re-entrant submit.
func NewSubmissionInFlightError() *StandardError {
	return newError(ErrCodeSubmissionInFlight, "A submission is already in progress", "", false)
}

// NewSubmissionRejectedError wraps a non-2xx response from the submission endpoint.
func NewSubmissionRejectedError(status int, message string) *StandardError {
	err := newError(ErrCodeSubmissionRejected, message, fmt.Sprintf("status: %d", status), status >= 500)
	err.Metadata = map[string]interface{}{"status": status}
	return err
}

// NewNetworkError creates a retryable transport error.
func NewNetworkError(service string, err error) *StandardError {
	return newError(ErrCodeNetworkError, fmt.Sprintf("Network error calling %s", service), err.Error(), true)
}

// NewRequestTimeoutError creates a retryable timeout error.
func NewRequestTimeoutError(service string, timeout time.Duration) *StandardError {
	return newError(ErrCodeRequestTimeout, fmt.Sprintf("Request to %s timed out", service),
		fmt.Sprintf("timeout: %s", timeout), true)
}

// NewResponseParseFailedError creates a non-retryable decode error.
func NewResponseParseFailedError(service string, err error) *StandardError {
	return newError(ErrCodeResponseParseFailed, fmt.Sprintf("Failed to parse %s response", service), err.Error(), false)
}

// NewAuthFailedError creates a non-retryable authentication error.
func NewAuthFailedError(message string, status int) *StandardError {
	err := newError(ErrCodeAuthFailed, message, fmt.Sprintf("status: %d", status), false)
	err.Metadata = map[string]interface{}{"status": status}
	return err
}

// NewSessionExpiredError is returned when the stored token is missing or past its expiry.
func NewSessionExpiredError(details string) *StandardError {
	return newError(ErrCodeSessionExpired, "Session expired, please log in again", details, false)
}

// NewOptionsLoadFailedError creates a retryable options fetch error.
func NewOptionsLoadFailedError(source string, err error) *StandardError {
	return newError(ErrCodeOptionsLoadFailed, "Failed to load form options",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), true)
}

// NewOptionsSchemaInvalidError creates a non-retryable schema mismatch error.
func NewOptionsSchemaInvalidError(details string) *StandardError {
	return newError(ErrCodeOptionsSchemaInvalid, "Form options document does not match schema", details, false)
}

// NewAdminRequestFailedError wraps a failed admin listing or status call.
func NewAdminRequestFailedError(message string, status int) *StandardError {
	err := newError(ErrCodeAdminRequestFailed, message, fmt.Sprintf("status: %d", status), status >= 500)
	err.Metadata = map[string]interface{}{"status": status}
	return err
}

// NewAuditWriteFailedError creates a retryable audit insert error.
func NewAuditWriteFailedError(err error) *StandardError {
	return newError(ErrCodeAuditWriteFailed, "Failed to write submission audit record", err.Error(), true)
}

// NewConfigInvalidError creates a non-retryable configuration error.
func NewConfigInvalidError(details string) *StandardError {
	return newError(ErrCodeConfigInvalid, "Invalid configuration", details, false)
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryableErrorCode reports whether an operation failing with code may be
// attempted again by the user without changing any input.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeNetworkError,
		ErrCodeRequestTimeout,
		ErrCodeOptionsLoadFailed,
		ErrCodeAuditWriteFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "SESSION"):
		return "AUTH"
	case strings.Contains(codeStr, "SUBMISSION"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "NETWORK") || strings.Contains(codeStr, "TIMEOUT") || strings.Contains(codeStr, "RESPONSE"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "OPTIONS"):
		return "OPTIONS"
	case strings.Contains(codeStr, "ADMIN"):
		return "ADMIN"
	case strings.Contains(codeStr, "AUDIT"):
		return "DATABASE"
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIG"
	case strings.Contains(codeStr, "FIELD") || strings.Contains(codeStr, "STEP") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError unwraps err into a *StandardError if one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}
