package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
)

// RateLimitConfig sets a token bucket per caller.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: now,
	}
}

// take consumes a token. When none is left it reports how many whole
// seconds until one is.
func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.maxTokens, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int(math.Ceil((1 - b.tokens) / b.refillRate))
}

// bucketIdleTTL is how long a caller must go quiet before its bucket is
// dropped. Buckets that would not yet have refilled are kept regardless.
const bucketIdleTTL = 5 * time.Minute

type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	cfg       RateLimitConfig
	now       func() time.Time
	lastSweep time.Time
}

func newBucketStore(cfg RateLimitConfig, now func() time.Time) *bucketStore {
	return &bucketStore{
		buckets:   make(map[string]*tokenBucket),
		cfg:       cfg,
		now:       now,
		lastSweep: now(),
	}
}

func (s *bucketStore) get(key string) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= bucketIdleTTL {
		s.sweep(now)
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = newTokenBucket(s.cfg.RequestsPerSecond, s.cfg.BurstSize, now)
		s.buckets[key] = b
	}
	return b
}

// sweep drops buckets idle long enough to be full again, so a fresh bucket
// is equivalent. With no refill a bucket never refills and is kept. Callers
// hold s.mu.
func (s *bucketStore) sweep(now time.Time) {
	if s.cfg.RequestsPerSecond <= 0 {
		return
	}
	ttl := bucketIdleTTL
	if fill := time.Duration(float64(s.cfg.BurstSize) / s.cfg.RequestsPerSecond * float64(time.Second)); fill > ttl {
		ttl = fill
	}
	for key, b := range s.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastRefill)
		b.mu.Unlock()
		if idle >= ttl {
			delete(s.buckets, key)
		}
	}
}

// rateKey is the verified subject when there is one and the client IP
// otherwise.
func rateKey(c echo.Context) string {
	if id, ok := auth.IdentityFromContext(c.Request().Context()); ok && id.Subject != "" {
		return "sub:" + id.Subject
	}
	return "ip:" + c.RealIP()
}

// RateLimit returns per-caller token bucket middleware. Every route that
// shares the returned middleware shares its buckets.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) echo.MiddlewareFunc {
	store := newBucketStore(cfg, now)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			ok, retryAfter := store.get(rateKey(c)).take(now())
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
