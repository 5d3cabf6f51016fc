// Package handlers wires the HTTP surface: health, sample questions, the
// four generation endpoints, and the optional history endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	contextutils "examprep/internal/utils"
)

// HandleAppError sends a structured error response for any error value.
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*contextutils.AppError); ok {
		errorJSON := appErr.ToJSON()
		errorJSON["retryable"] = contextutils.IsRetryable(appErr)
		c.JSON(mapErrorCodeToHTTPStatus(appErr.Code), errorJSON)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"message": err.Error(),
	})
}

// mapErrorCodeToHTTPStatus maps AppError codes to HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired:
		return http.StatusBadRequest

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	// Upstream and extraction failures are generation failures from the
	// caller's point of view.
	case contextutils.ErrorCodeUpstreamTimeout, contextutils.ErrorCodeUpstreamTransport,
		contextutils.ErrorCodeUpstreamAuth, contextutils.ErrorCodeUpstreamRateLimited,
		contextutils.ErrorCodeUpstreamStatus,
		contextutils.ErrorCodeNoPayloadFound, contextutils.ErrorCodeMalformedPayload,
		contextutils.ErrorCodeSchemaViolation:
		return http.StatusInternalServerError

	case contextutils.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeDatabaseConnection, contextutils.ErrorCodeDatabaseQuery:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
