package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per caller and evicts idle buckets.
// It guards the HTTP surface only; per-tick engine limits live in the engine.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	log     *logrus.Logger

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil when rps or burst is not positive; a nil limiter
// admits everything.
func NewRateLimiter(rps float64, burst int, log *logrus.Logger) *RateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		log:     log,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether key may spend one token at now.
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}

// Middleware keys on the authenticated account, falling back to the client IP.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := Account(c)
			if key == "" {
				key = c.RealIP()
			}
			if !l.Allow(key, time.Now()) {
				if l.log != nil {
					l.log.WithFields(logrus.Fields{
						"key":    key,
						"path":   c.Path(),
						"method": c.Request().Method,
					}).Warn("rate limit exceeded")
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
