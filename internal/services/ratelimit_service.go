// Package services contains the admission gate, prompt builder, upstream
// client, extractor, fallback pool, and the four generation pipelines.
package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"examprep/internal/config"
	"examprep/internal/observability"
)

// RateLimiter admits or denies requests per client identity using a fixed
// trailing window. Each check prunes timestamps older than the window and
// appends the current timestamp only when the request is admitted, so a
// denied request never consumes a slot.
//
// Identities are never evicted; the map grows with the number of distinct
// clients seen over the process lifetime.
type RateLimiter struct {
	mu      sync.Mutex
	quota   int
	window  time.Duration
	windows map[string][]int64 // timestamps in milliseconds since epoch

	logger *observability.Logger
}

// NewRateLimiter creates a rate limiter with the given per-identity quota
// over a 60 second trailing window.
func NewRateLimiter(quota int, logger *observability.Logger) *RateLimiter {
	if quota <= 0 {
		quota = config.DefaultRateLimitQuota
	}
	return &RateLimiter{
		quota:   quota,
		window:  config.RateLimitWindow,
		windows: make(map[string][]int64),
		logger:  logger,
	}
}

// Allow decides whether a request from the given identity is admitted at the
// given instant. Prune and append happen under one critical section so two
// concurrent requests cannot both claim the last remaining slot.
func (r *RateLimiter) Allow(ctx context.Context, identity string, now time.Time) bool {
	_, span := observability.TraceLimiterFunction(ctx, "Allow",
		observability.AttributeClientIP(identity),
	)
	defer span.End()

	nowMs := now.UnixMilli()
	cutoff := nowMs - r.window.Milliseconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := r.windows[identity]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.quota {
		r.windows[identity] = kept
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		if r.logger != nil {
			r.logger.Warn(ctx, "Rate limit exceeded", map[string]interface{}{
				"identity": identity,
				"quota":    r.quota,
			})
		}
		return false
	}

	r.windows[identity] = append(kept, nowMs)
	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true
}

// Quota returns the configured per-identity quota.
func (r *RateLimiter) Quota() int {
	return r.quota
}

// TrackedIdentities returns the number of identities currently tracked.
// Exposed for operational inspection.
func (r *RateLimiter) TrackedIdentities() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
