package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimitOptions configures a per-client token bucket.
type RateLimitOptions struct {
	// Interval is the time between regained tokens.
	Interval time.Duration
	Burst    int
	// CacheSize bounds the number of tracked clients.
	CacheSize int
	TTL       time.Duration
	// TrustHeaders keys clients by X-Forwarded-For / X-Real-Ip.
	TrustHeaders bool
}

// RateLimit limits requests per client IP. Limiters live in an expiring LRU
// so idle clients are forgotten.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	cache := expirable.NewLRU[string, *rate.Limiter](opts.CacheSize, nil, opts.TTL)

	getLimiter := func(client string) *rate.Limiter {
		limiter, ok := cache.Get(client)
		if !ok {
			limiter = rate.NewLimiter(rate.Every(opts.Interval), opts.Burst)
			cache.Add(client, limiter)
		}
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getLimiter(clientIP(r, opts.TrustHeaders))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				jsonError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				jsonError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(opts.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustHeaders bool) string {
	if trustHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-Ip"); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
