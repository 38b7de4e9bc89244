package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
)

// Limit is a request budget per fixed window for one route.
type Limit struct {
	Requests int
	Window   time.Duration
	Key      func(r *http.Request) string
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist []string // IPs or CIDRs exempt from rate limiting
}

// RateLimiter counts requests per client in Redis. Routes are keyed
// "METHOD /path"; a route ending in "/" covers every path below it.
type RateLimiter struct {
	client *redis.Client
	logger zerolog.Logger
	routes map[string]Limit
	exempt []*net.IPNet
}

// NewRateLimiter creates a rate limiter for the token and history routes.
// The webhook is never limited.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		client: client,
		logger: logger,
		routes: map[string]Limit{
			"POST /token":  {30, time.Minute, endpointKey},
			"GET /groups":  {60, time.Minute, ipKey},
			"GET /groups/": {120, time.Minute, ipKey},
		},
	}

	for _, entry := range cfg.Whitelist {
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("invalid whitelist entry")
			continue
		}
		rl.exempt = append(rl.exempt, ipNet)
	}
	if len(rl.exempt) > 0 {
		logger.Info().Int("entries", len(rl.exempt)).Msg("rate limit whitelist configured")
	}

	return rl
}

func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.exempt {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP is the connection address, already rewritten from proxy headers
// by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipKey(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

// endpointKey buckets token requests per endpoint hint and address, so
// several users behind one NAT do not share a budget.
func endpointKey(r *http.Request) string {
	if endpointID := r.Header.Get("X-Endpoint-Id"); endpointID != "" {
		return "ratelimit:endpoint:" + endpointID + ":" + clientIP(r)
	}
	return ipKey(r)
}

// limitFor returns the limit covering the request, if any.
func (rl *RateLimiter) limitFor(r *http.Request) (Limit, bool) {
	route := r.Method + " " + r.URL.Path
	if limit, ok := rl.routes[route]; ok {
		return limit, true
	}
	for pattern, limit := range rl.routes {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(route, pattern) {
			return limit, true
		}
	}
	return Limit{}, false
}

// count increments the request counter of key for the current window and
// returns the new count and when the window ends.
func (rl *RateLimiter) count(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()
	start := now.Truncate(window)
	bucket := fmt.Sprintf("%s:%d", key, start.Unix())

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	return incr.Val(), start.Add(window), nil
}

// Middleware returns the rate limiting middleware. Redis failures let the
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, ok := rl.limitFor(r)
		if !ok || rl.isWhitelisted(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		key := limit.Key(r)
		n, resetAt, err := rl.count(r.Context(), key, limit.Window)
		if err != nil {
			rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		remaining := limit.Requests - int(n)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if n > int64(limit.Requests) {
			metrics.RateLimitHits.WithLabelValues(normalizePath(r.URL.Path)).Inc()
			rl.logger.Warn().
				Str("ip", clientIP(r)).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
