package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/animerged/pkg/httputil"
)

// CounterStore is the shared storage behind the rate limiter.
// Counters must be visible to every API instance.
type CounterStore interface {
	// Get returns the counter at key, zero when the key does not exist
	Get(ctx context.Context, key string) (int64, error)
	// IncrExpire atomically increments key and resets its TTL
	IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// Requests is the max requests allowed in the window
	Requests int
	// Window is the counter TTL. Every recorded request extends it.
	Window time.Duration
	// KeyFormat turns a client identifier into a counter key
	KeyFormat string
	// TrustForwardedFor uses the first X-Forwarded-For entry as the client IP
	TrustForwardedFor bool
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:  30,
		Window:    time.Minute,
		KeyFormat: "rate:%s:requests",
	}
}

// RateLimiter is a fixed-window request counter keyed by client IP.
// The window slides with activity: a client that keeps calling keeps
// its counter alive.
type RateLimiter struct {
	store    CounterStore
	config   RateLimitConfig
	rejected prometheus.Counter
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(store CounterStore, config RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if config.Requests <= 0 {
		config.Requests = defaults.Requests
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyFormat == "" {
		config.KeyFormat = defaults.KeyFormat
	}

	return &RateLimiter{
		store:  store,
		config: config,
	}
}

// SetRejectionCounter counts every 429 on c
func (rl *RateLimiter) SetRejectionCounter(c prometheus.Counter) {
	rl.rejected = c
}

func (rl *RateLimiter) key(id string) string {
	return fmt.Sprintf(rl.config.KeyFormat, id)
}

// Allow reports whether id is still under the limit. It does not count the request.
func (rl *RateLimiter) Allow(ctx context.Context, id string) (bool, error) {
	count, err := rl.store.Get(ctx, rl.key(id))
	if err != nil {
		return false, fmt.Errorf("rate limit lookup failed: %w", err)
	}
	return count < int64(rl.config.Requests), nil
}

// Record counts one request for id and extends its window
func (rl *RateLimiter) Record(ctx context.Context, id string) error {
	_, err := rl.record(ctx, id)
	return err
}

func (rl *RateLimiter) record(ctx context.Context, id string) (int64, error) {
	count, err := rl.store.IncrExpire(ctx, rl.key(id), rl.config.Window)
	if err != nil {
		return 0, fmt.Errorf("rate limit record failed: %w", err)
	}
	return count, nil
}

// Middleware rejects clients over the limit with a 429 and counts the rest.
// Store failures are answered with a 500.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := getClientIP(r, rl.config.TrustForwardedFor)

		allowed, err := rl.Allow(ctx, ip)
		if err != nil {
			httputil.WriteServerError(w, r, err)
			return
		}

		if !allowed {
			rl.rateLimitExceeded(w, r)
			return
		}

		count, err := rl.record(ctx, ip)
		if err != nil {
			httputil.WriteServerError(w, r, err)
			return
		}

		remaining := int64(rl.config.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rl.config.Window).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	if rl.rejected != nil {
		rl.rejected.Inc()
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.config.Window.Seconds()))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteRateLimitExceeded(w, r)
}

func getClientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
