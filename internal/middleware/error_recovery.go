package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"examprep/internal/observability"
	contextutils "examprep/internal/utils"
)

// ErrorRecoveryMiddleware turns panics into structured 500 responses so a
// failure in one request never takes the process down.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := string(debug.Stack())
				logger.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", r), map[string]interface{}{
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				})

				appErr := contextutils.NewAppError(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
				)
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToJSON())
			}
		}()

		c.Next()
	}
}
