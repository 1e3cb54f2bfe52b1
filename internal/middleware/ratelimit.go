package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codecache-ai/codecache/internal/metrics"
)

// KeyFunc extracts the caller identity a limit is applied to. An empty
// result falls back to the client IP.
type KeyFunc func(r *http.Request) string

// RateLimiter provides sliding-window rate limiting backed by Redis sorted sets.
type RateLimiter struct {
	client    redis.Cmdable
	prefix    string
	maxReqs   int
	windowSec int
	keyFn     KeyFunc
}

// NewRateLimiter creates a rate limiter that allows maxReqs per windowSec
// seconds for each key produced by keyFn.
func NewRateLimiter(client redis.Cmdable, prefix string, maxReqs, windowSec int, keyFn KeyFunc) *RateLimiter {
	return &RateLimiter{
		client:    client,
		prefix:    prefix,
		maxReqs:   maxReqs,
		windowSec: windowSec,
		keyFn:     keyFn,
	}
}

// Middleware returns an HTTP middleware that enforces the rate limit.
// On Redis errors it fails open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)

		allowed, err := rl.allow(r.Context(), key)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(rl.windowSec))
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) key(r *http.Request) string {
	if rl.keyFn != nil {
		if id := rl.keyFn(r); id != "" {
			return rl.prefix + "user:" + id
		}
	}
	return rl.prefix + "ip:" + clientIP(r)
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	window := time.Duration(rl.windowSec) * time.Second
	windowStart := float64(now.Add(-window).UnixMilli())
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.Expire(ctx, key, window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(rl.maxReqs), nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
