package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation   = "E100"
	CodeNotFound     = "E110"
	CodeUnauthorized = "E120"
	CodeDatabase     = "E200"
	CodeExternalAPI  = "E300"
	CodeInternal     = "E900"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Status      int
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError reports malformed or missing input. userMsg is shown to the caller verbatim.
func NewValidationError(userMsg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     fmt.Sprintf("validation failed: %s", userMsg),
		UserMessage: userMsg,
		Severity:    SeverityLow,
		Status:      http.StatusBadRequest,
	}
}

// NewNotFoundError reports an absent entity, or an access check that must look like one.
func NewNotFoundError(userMsg string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("not found: %s", userMsg),
		UserMessage: userMsg,
		Severity:    SeverityLow,
		Status:      http.StatusNotFound,
	}
}

func NewUnauthorizedError(cause error) *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     "unauthorized",
		UserMessage: "Unauthorized",
		Severity:    SeverityLow,
		Status:      http.StatusUnauthorized,
		cause:       cause,
	}
}

// NewDatabaseError wraps a storage failure. The caller sees the raw failure text.
func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: underlyingMsg,
		Severity:    SeverityHigh,
		Status:      http.StatusInternalServerError,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "Service temporarily unavailable",
		Severity:    SeverityMedium,
		Status:      http.StatusBadGateway,
		cause:       cause,
	}
}

func NewInternalError(cause error) *AppError {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}

	return &AppError{
		Code:        CodeInternal,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityCritical,
		Status:      http.StatusInternalServerError,
		cause:       cause,
	}
}

// StatusCode maps err to an HTTP status. Errors outside the taxonomy are 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil && appErr.Status != 0 {
		return appErr.Status
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text that may be shown to the caller for err.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil && appErr.UserMessage != "" {
		return appErr.UserMessage
	}

	return err.Error()
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Code == code
}
