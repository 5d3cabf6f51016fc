package observability

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling creates OpenTelemetry middleware that also
// marks spans of failed requests with error attributes
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		otelgin.Middleware(serviceName)(c)

		c.Next()

		if span := trace.SpanFromContext(c.Request.Context()); span != nil {
			statusCode := c.Writer.Status()
			if statusCode >= 400 {
				errorMsg := "client error"
				if statusCode >= 500 {
					errorMsg = "server error"
				}
				if len(c.Errors) > 0 {
					errorMsg = c.Errors.Last().Error()
				}

				span.SetAttributes(
					attribute.Int("http.status_code", statusCode),
					attribute.String("http.error_message", errorMsg),
				)
				if statusCode >= 500 {
					span.SetStatus(codes.Error, errorMsg)
				}
			}
		}
	}
}
