// Package contextutils provides error handling utilities and standardized error types
// for consistent error management across the exam-prep backend.
package contextutils

import (
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Validation error codes

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingRequired indicates that a required field is missing
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Admission error codes

	// ErrorCodeRateLimit indicates that the local admission gate denied the request
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Upstream generation service error codes

	// ErrorCodeUpstreamTimeout indicates the upstream call exceeded its deadline
	ErrorCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	// ErrorCodeUpstreamTransport indicates a network-level failure reaching the upstream
	ErrorCodeUpstreamTransport ErrorCode = "UPSTREAM_TRANSPORT_FAILURE"
	// ErrorCodeUpstreamAuth indicates the upstream rejected our credentials
	ErrorCodeUpstreamAuth ErrorCode = "UPSTREAM_AUTH_FAILURE"
	// ErrorCodeUpstreamRateLimited indicates the upstream throttled us
	ErrorCodeUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	// ErrorCodeUpstreamStatus indicates an unexpected upstream status or envelope
	ErrorCodeUpstreamStatus ErrorCode = "UPSTREAM_UNEXPECTED_STATUS"

	// Response extraction error codes

	// ErrorCodeNoPayloadFound indicates the model reply contained no recognizable payload
	ErrorCodeNoPayloadFound ErrorCode = "RESPONSE_NO_PAYLOAD"
	// ErrorCodeMalformedPayload indicates a bracket span was found but did not parse
	ErrorCodeMalformedPayload ErrorCode = "RESPONSE_MALFORMED_PAYLOAD"
	// ErrorCodeSchemaViolation indicates the parsed payload failed record invariants
	ErrorCodeSchemaViolation ErrorCode = "RESPONSE_SCHEMA_VIOLATION"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that the service is temporarily unavailable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"

	// Database error codes

	// ErrorCodeDatabaseConnection indicates a database connection error
	ErrorCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_ERROR"
	// ErrorCodeDatabaseQuery indicates a database query error
	ErrorCodeDatabaseQuery ErrorCode = "DATABASE_QUERY_ERROR"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

// Error types for consistent error handling with associated codes and severity
var (
	// Validation errors
	ErrInvalidInput = &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
	}

	ErrMissingRequired = &AppError{
		Code:     ErrorCodeMissingRequired,
		Severity: SeverityWarn,
		Message:  "Missing required field",
	}

	// Admission errors
	ErrRateLimit = &AppError{
		Code:     ErrorCodeRateLimit,
		Severity: SeverityWarn,
		Message:  "Rate limit exceeded",
	}

	// Upstream errors
	ErrUpstreamTimeout = &AppError{
		Code:     ErrorCodeUpstreamTimeout,
		Severity: SeverityWarn,
		Message:  "Upstream request timed out",
	}

	ErrUpstreamTransport = &AppError{
		Code:     ErrorCodeUpstreamTransport,
		Severity: SeverityError,
		Message:  "Upstream transport failure",
	}

	ErrUpstreamAuth = &AppError{
		Code:     ErrorCodeUpstreamAuth,
		Severity: SeverityError,
		Message:  "Upstream authentication failed",
	}

	ErrUpstreamRateLimited = &AppError{
		Code:     ErrorCodeUpstreamRateLimited,
		Severity: SeverityWarn,
		Message:  "Upstream rate limit exceeded",
	}

	ErrUpstreamStatus = &AppError{
		Code:     ErrorCodeUpstreamStatus,
		Severity: SeverityError,
		Message:  "Unexpected upstream response",
	}

	// Extraction errors
	ErrNoPayloadFound = &AppError{
		Code:     ErrorCodeNoPayloadFound,
		Severity: SeverityWarn,
		Message:  "No structured payload in model response",
	}

	ErrMalformedPayload = &AppError{
		Code:     ErrorCodeMalformedPayload,
		Severity: SeverityWarn,
		Message:  "Model payload is not valid JSON",
	}

	ErrSchemaViolation = &AppError{
		Code:     ErrorCodeSchemaViolation,
		Severity: SeverityWarn,
		Message:  "Model payload failed schema validation",
	}

	// Service errors
	ErrServiceUnavailable = &AppError{
		Code:     ErrorCodeServiceUnavailable,
		Severity: SeverityError,
		Message:  "Service unavailable",
	}

	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal server error",
	}

	// Database errors
	ErrDatabaseConnection = &AppError{
		Code:     ErrorCodeDatabaseConnection,
		Severity: SeverityError,
		Message:  "Database connection failed",
	}

	ErrDatabaseQuery = &AppError{
		Code:     ErrorCodeDatabaseQuery,
		Severity: SeverityError,
		Message:  "Database query failed",
	}
)

// NewAppError creates a new AppError with the specified code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context, preserving AppError structure if possible
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.Error(),
			Cause:    appErr,
		}
	}

	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// WrapErrorf wraps an error with formatted context, preserving AppError structure if possible
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if strings.Contains(format, "%w") {
		wrappedErr := fmt.Errorf(format, args...)

		if appErr, ok := err.(*AppError); ok {
			return &AppError{
				Code:     appErr.Code,
				Severity: appErr.Severity,
				Message:  wrappedErr.Error(),
				Details:  appErr.Error(),
				Cause:    wrappedErr,
			}
		}

		return &AppError{
			Code:     ErrorCodeInternalError,
			Severity: SeverityError,
			Message:  wrappedErr.Error(),
			Details:  err.Error(),
			Cause:    wrappedErr,
		}
	}

	context := fmt.Sprintf(format, args...)
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.Error(),
			Cause:    appErr,
		}
	}

	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// ErrorWithContextf creates a new error with formatted context
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsError checks if an error matches a specific AppError type
func IsError(err error, target *AppError) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == target.Code
	}
	return false
}

// GetErrorCode returns the error code from an error if it's an AppError, otherwise returns a default code
func GetErrorCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns the severity level from an error if it's an AppError, otherwise returns error
func GetErrorSeverity(err error) SeverityLevel {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable determines if an error should be retried based on its type and severity.
// The pipelines never retry automatically; this is advisory for clients.
func IsRetryable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		switch appErr.Code {
		case ErrorCodeUpstreamTimeout, ErrorCodeUpstreamTransport,
			ErrorCodeUpstreamRateLimited, ErrorCodeServiceUnavailable,
			ErrorCodeRateLimit, ErrorCodeDatabaseConnection:
			return appErr.Severity != SeverityFatal
		}
	}
	return false
}

// ToJSON converts an AppError to a JSON-serializable structure for API responses
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     string(e.Code),
		"message":  e.Message,
		"severity": string(e.Severity),
		"error":    e.Message,
	}

	if e.Details != "" {
		result["details"] = e.Details
	}

	result["retryable"] = IsRetryable(e)

	return result
}
