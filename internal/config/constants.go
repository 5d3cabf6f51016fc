package config

import "time"

// Timeout constants
const (
	// Upstream generation calls are abandoned after this deadline and
	// surface as a timeout error. No automatic retry is performed.
	UpstreamRequestTimeout = 30 * time.Second

	// Health probes use a short, fixed deadline
	UpstreamProbeTimeout = 10 * time.Second

	// Server shutdown
	ShutdownTimeout = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Rate limit constants
const (
	// DefaultRateLimitQuota caps requests per identity per window
	DefaultRateLimitQuota = 100

	// RateLimitWindow is the trailing admission window
	RateLimitWindow = time.Minute
)

// Test generation constants
const (
	// DefaultTestQuestionCount is used when the caller omits count
	DefaultTestQuestionCount = 5

	// DefaultQuestionMarks is assumed when the model omits marks
	DefaultQuestionMarks = 4.0

	// DefaultNegativeMarks is assumed when the model omits negativeMarks
	DefaultNegativeMarks = 1.0

	// MinutesPerTestQuestion converts question count to test duration
	MinutesPerTestQuestion = 1.5
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:;"
)
