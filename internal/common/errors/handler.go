// internal/common/errors/handler.go
package errors

import (
	"context"
	"time"
)

// Exit codes used by the CLI.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitAuth       = 3
	ExitRetryable  = 4
)

// ErrorHandler normalizes errors surfacing at the command boundary, logs
// them once and maps them to a user message and an exit code.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err and returns the message to show the user plus the process exit code.
func (h *ErrorHandler) Handle(command string, err error) (string, int) {
	if err == nil {
		return "", ExitOK
	}

	stdErr := h.normalizeError(err)
	h.logError(command, stdErr)

	return stdErr.Message, exitCodeFor(stdErr)
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	if err == context.DeadlineExceeded {
		return &StandardError{
			Code:      ErrCodeRequestTimeout,
			Message:   "Operation timed out",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func exitCodeFor(stdErr *StandardError) int {
	switch GetErrorCategory(stdErr.Code) {
	case "VALIDATION":
		return ExitValidation
	case "AUTH":
		return ExitAuth
	}
	if stdErr.Retryable || IsRetryableErrorCode(stdErr.Code) {
		return ExitRetryable
	}
	return ExitFailure
}

func (h *ErrorHandler) logError(command string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("command failed", map[string]interface{}{
		"command":       command,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
