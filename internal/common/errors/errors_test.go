package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

// ==========================
// StandardError
// ==========================

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewNetworkError("submission", stderrors.New("connection refused")))

	assert.True(t, stderrors.Is(err, &StandardError{Code: ErrCodeNetworkError}))
	assert.False(t, stderrors.Is(err, &StandardError{Code: ErrCodeAuthFailed}))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "connection refused", stdErr.Details)
}

func TestStandardError_Constructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"unknown field", NewUnknownFieldError("middleName"), ErrCodeUnknownField, false},
		{"invalid value", NewInvalidFieldValueError("termsAccepted", "bool", "yes"), ErrCodeInvalidFieldValue, false},
		{"not final", NewNotOnFinalStepError(2, 4), ErrCodeNotOnFinalStep, false},
		{"in flight", NewSubmissionInFlightError(), ErrCodeSubmissionInFlight, false},
		{"rejected 400", NewSubmissionRejectedError(400, "bad"), ErrCodeSubmissionRejected, false},
		{"rejected 503", NewSubmissionRejectedError(503, "down"), ErrCodeSubmissionRejected, true},
		{"auth", NewAuthFailedError("Invalid credentials", 401), ErrCodeAuthFailed, false},
		{"options", NewOptionsLoadFailedError("server", stderrors.New("x")), ErrCodeOptionsLoadFailed, true},
		{"audit", NewAuditWriteFailedError(stderrors.New("x")), ErrCodeAuditWriteFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestNewStepValidationFailedError_Metadata(t *testing.T) {
	err := NewStepValidationFailedError(1, map[string]string{"email": "Email is required"})

	assert.Equal(t, 1, err.Metadata["step"])
	assert.Equal(t, map[string]string{"email": "Email is required"}, err.Metadata["errors"])
	assert.Contains(t, err.Details, "email")
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeAuthFailed:           "AUTH",
		ErrCodeSessionExpired:       "AUTH",
		ErrCodeSubmissionRejected:   "SUBMISSION",
		ErrCodeSubmissionInFlight:   "SUBMISSION",
		ErrCodeNetworkError:         "TRANSPORT",
		ErrCodeRequestTimeout:       "TRANSPORT",
		ErrCodeResponseParseFailed:  "TRANSPORT",
		ErrCodeOptionsSchemaInvalid: "OPTIONS",
		ErrCodeAuditWriteFailed:     "DATABASE",
		ErrCodeConfigInvalid:        "CONFIG",
		ErrCodeStepValidationFailed: "VALIDATION",
		ErrCodeUnknownField:         "VALIDATION",
		ErrCodeNotOnFinalStep:       "VALIDATION",
		ErrCodeAdminRequestFailed:   "ADMIN",
		ErrCodeInternal:             "OTHER",
	}

	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

// ==========================
// ErrorHandler
// ==========================

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"nil", nil, ExitOK, ""},
		{"validation", NewStepValidationFailedError(1, map[string]string{"ssn": "SSN is required"}), ExitValidation, "Validation failed"},
		{"auth", NewAuthFailedError("Invalid credentials", 401), ExitAuth, "Invalid credentials"},
		{"network", NewNetworkError("submission", stderrors.New("reset")), ExitRetryable, "Network error calling submission"},
		{"deadline", context.DeadlineExceeded, ExitRetryable, "Operation timed out"},
		{"plain", stderrors.New("boom"), ExitFailure, "Unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			h := NewErrorHandler(log)

			msg, code := h.Handle("apply", tt.err)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
			if tt.err == nil {
				assert.Empty(t, log.messages)
			} else {
				require.Len(t, log.messages, 1)
				assert.Equal(t, "apply", log.fields[0]["command"])
			}
		})
	}
}
