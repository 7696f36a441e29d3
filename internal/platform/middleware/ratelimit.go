package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/carehub/carehub/internal/platform/auth"
)

// RateLimitConfig sets the sustained rate and burst allowed per caller.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 50, BurstSize: 100}
}

// limiters hands out one limiter per caller key. Entries are never evicted;
// the key space is bounded by the staff roster plus anonymous addresses.
type limiters struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = lim
	}
	return lim
}

// RateLimit rejects callers that exceed cfg with 429 and a Retry-After hint.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &limiters{
		byKey: make(map[string]*rate.Limiter),
		limit: rate.Limit(cfg.RequestsPerSecond),
		burst: cfg.BurstSize,
	}
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			lim := store.get(rateLimitKey(c))
			now := time.Now()
			if lim.AllowN(now, 1) {
				return next(c)
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter(lim, now)))
			h.Set("X-RateLimit-Remaining", "0")
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}

// retryAfter is the whole seconds until one token is available, at least 1.
func retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	if s := int(math.Ceil(wait.Seconds())); s > 1 {
		return s
	}
	return 1
}

// rateLimitKey buckets staff by id and anonymous callers by address.
func rateLimitKey(c echo.Context) string {
	if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
		return "staff:" + strconv.FormatInt(p.StaffID, 10)
	}
	return "ip:" + c.RealIP()
}
