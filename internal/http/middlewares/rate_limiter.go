package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowCounter counts hits for a key inside a fixed window and reports
// how long until that window resets.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetIn time.Duration, err error)
}

// LimitObserver is told about every rejected request.
type LimitObserver interface {
	ObserveRateLimited(scope string)
}

type RateLimiter struct {
	counter  WindowCounter
	limit    int
	window   time.Duration
	prefix   string
	observer LimitObserver
}

type RateLimitOption func(*RateLimiter)

func WithLimitObserver(o LimitObserver) RateLimitOption {
	return func(rl *RateLimiter) { rl.observer = o }
}

func NewRateLimiter(counter WindowCounter, prefix string, limit int, window time.Duration, opts ...RateLimitOption) *RateLimiter {
	if counter == nil {
		counter = NewMemoryCounter()
	}

	rl := &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Middleware enforces the limit for a key derived from the request.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.counter.Hit(c.Request.Context(), rl.prefix+":"+key, rl.window)
		if err != nil {
			// fail open, the limiter must not take the API down with it
			slog.Default().WarnContext(c.Request.Context(), "rate_limit.counter_error", "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(resetIn.Round(time.Second).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			if rl.observer != nil {
				rl.observer.ObserveRateLimited(rl.prefix)
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWithError(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available
func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)
	if ok {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}

const sweepThreshold = 1024

// MemoryCounter is a process-local WindowCounter.
type MemoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		if len(m.clients) >= sweepThreshold {
			m.sweep(now)
		}
		b = &clientBucket{windowEnd: now.Add(window)}
		m.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

// sweep drops expired buckets; caller holds mu.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, b := range m.clients {
		if !now.Before(b.windowEnd) {
			delete(m.clients, k)
		}
	}
}
