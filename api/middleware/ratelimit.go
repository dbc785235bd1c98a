package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/pagescrape/config"
	"github.com/use-agent/pagescrape/models"
)

const (
	bucketIdleTTL = time.Hour
	sweepInterval = 5 * time.Minute
)

// clientKey identifies a caller. Keys and addresses live in separate
// namespaces so an API key can never share a bucket with an IP.
type clientKey struct {
	apiKey bool
	value  string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per caller. Idle buckets are dropped
// lazily on access.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[clientKey]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		buckets: make(map[clientKey]*bucket),
		now:     time.Now,
	}
}

// take spends one token for key. When none is available it reports how long
// the caller should wait.
func (s *limiterSet) take(key clientKey) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (s *limiterSet) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	cutoff := now.Add(-bucketIdleTTL)
	for k, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, k)
		}
	}
}

// RateLimit returns per-caller token-bucket middleware keyed by the API key
// set by Auth, or by client IP when there is none. A non-positive
// RequestsPerSecond disables limiting. Rejections carry Retry-After.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	set := newLimiterSet(cfg.RequestsPerSecond, cfg.Burst)

	return func(c *gin.Context) {
		key := clientKey{value: c.ClientIP()}
		if apiKey := c.GetString(APIKeyContextKey); apiKey != "" {
			key = clientKey{apiKey: true, value: apiKey}
		}

		ok, wait := set.take(key)
		if !ok {
			if wait > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "rate limit exceeded, please slow down",
				Code:  models.ErrCodeRateLimited,
			})
			return
		}

		c.Next()
	}
}
