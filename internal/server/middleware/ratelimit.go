package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(limit int, count int64, reset time.Time) Decision {
	remaining := max(limit-int(min(count, math.MaxInt32)), 0)
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

// RedisLimiter shares counters between instances. The window starts with
// the first request for a key and ends when the key expires.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis error: %w", err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis error: %w", err)
		}
		ttl = l.window
	}

	return decide(l.limit, incr.Val(), l.now().Add(ttl)), nil
}

type window struct {
	count int64
	reset time.Time
}

// MemoryLimiter is the single-instance fallback used when no Redis address
// is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
	lastGC  time.Time
}

func NewMemoryLimiter(limit int, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  w,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++

	return decide(l.limit, w.count, w.reset), nil
}

// gc drops finished windows at most once per window length.
func (l *MemoryLimiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.window {
		return
	}
	l.lastGC = now
	for k, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, k)
		}
	}
}

// ClientIP is the host part of RemoteAddr. Forwarding headers are not
// trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit limits requests per client IP and reports the window in
// RateLimit-* headers. Limiter errors fail open.
func RateLimit(l Limiter, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), "ip:"+ClientIP(r))
			if err != nil {
				log.Warn(r.Context(), "http.ratelimit.unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			resetIn := int(math.Ceil(time.Until(d.Reset).Seconds()))
			if resetIn < 0 {
				resetIn = 0
			}
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(resetIn))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(resetIn))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
