package osm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Service names for rate limiting
	ServiceNominatim = "nominatim"
	ServiceIPAPI     = "ip-api"
)

// RateLimiter manages rate limiting for the external lookup services
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewRateLimiter returns a limiter with the services' published limits.
func NewRateLimiter() *RateLimiter {
	limiters := make(map[string]*rate.Limiter)

	// Nominatim: 1 request per second
	// https://operations.osmfoundation.org/policies/nominatim/
	limiters[ServiceNominatim] = rate.NewLimiter(rate.Every(1*time.Second), 1)

	// ip-api free tier: 45 requests per minute
	limiters[ServiceIPAPI] = rate.NewLimiter(rate.Every(time.Minute/45), 1)

	return &RateLimiter{limiters: limiters}
}

// SetLimit replaces the limit for a service. rps <= 0 disables limiting.
func (rl *RateLimiter) SetLimit(service string, rps float64, burst int) {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters[service] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the rate limit for the specified service allows an event
// or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context, service string) error {
	rl.mu.RLock()
	limiter, exists := rl.limiters[service]
	rl.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no rate limiter defined for service: %s", service)
	}

	if err := limiter.Wait(ctx); err != nil {
		slog.Debug("rate limiter wait error", "service", service, "error", err)
		return err
	}

	return nil
}
