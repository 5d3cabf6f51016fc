package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"examprep/internal/config"
	"examprep/internal/middleware"
	"examprep/internal/observability"
	"examprep/internal/services"
	"examprep/internal/version"
)

// NewRouter creates the router with all middleware and routes. The health
// endpoint is registered before the admission gate so liveness checks are
// never throttled; everything under /api passes through the gate first.
func NewRouter(
	cfg *config.Config,
	examHandler *ExamHandler,
	limiter *services.RateLimiter,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// Attach a request id and log every request through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.request_id":  requestID,
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (not gated)
	router.GET("/health", examHandler.HealthCheck)

	// Version endpoint (not gated)
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "examprep-backend",
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling("examprep-backend"))

	router.RedirectTrailingSlash = false

	// Setup CORS middleware. With no configured origins the API is open, as
	// expected for a public practice API.
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Every /api route passes through the admission gate, the sample
	// endpoint included.
	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter, logger))
	{
		api.GET("/sample-questions", examHandler.SampleQuestions)
		api.POST("/generate-question", examHandler.GenerateQuestion)
		api.POST("/solve-doubt", examHandler.SolveDoubt)
		api.POST("/generate-test", examHandler.GenerateTest)
		api.POST("/explain-concept", examHandler.ExplainConcept)
		api.GET("/history", examHandler.RecentHistory)
	}

	return router
}
