package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/transport"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

var errTooManyRequests = &internal.AppError{
	Type:       internal.ErrorTypeRateLimited,
	Code:       internal.ErrCodeRateLimited,
	Message:    "Too many requests, slow down",
	StatusCode: http.StatusTooManyRequests,
}

// RateLimiter keeps one token bucket per client address. Idle buckets fall out of the cache.
type RateLimiter struct {
	limit rate.Limit
	burst int
	base  *transport.BaseHandler

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

func NewRateLimiter(perSecond float64, burst int, base *transport.BaseHandler) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		base:     base,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.limiterFor(clientIP(r))
		if !limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter(rl.limit).Seconds())))
			rl.base.HandleServiceError(w, r, errTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfter(limit rate.Limit) time.Duration {
	if limit <= 0 {
		return time.Second
	}
	d := time.Duration(float64(time.Second) / float64(limit))
	if d < time.Second {
		return time.Second
	}
	return d
}

// clientIP prefers the address set by chi's RealIP middleware in RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
