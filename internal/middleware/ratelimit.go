package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/personal-context-builder/pkg/response"
)

// KeyFunc picks the bucket a request is counted in
type KeyFunc func(c *gin.Context) string

// ByClientIP counts requests per client address
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// BySubject counts requests per token subject set by Auth, falling back to
// the client address on requests that carry no subject
func BySubject(c *gin.Context) string {
	if subject := c.GetString(SubjectKey); subject != "" {
		return "sub:" + subject
	}
	return ByClientIP(c)
}

// RateLimiter is a sliding window limiter. Expired buckets are swept by a
// background goroutine that runs until the context passed to NewRateLimiter
// is done or Stop is called.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration

	stop    context.CancelFunc
	stopped chan struct{}
}

// NewRateLimiter starts a limiter allowing limit requests per key in window
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	rl := &RateLimiter{
		hits:    make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		stop:    cancel,
		stopped: make(chan struct{}),
	}
	go rl.sweep(ctx)
	return rl
}

// Stop ends the sweeper and waits for it to exit
func (rl *RateLimiter) Stop() {
	rl.stop()
	<-rl.stopped
}

// Done is closed once the sweeper has exited
func (rl *RateLimiter) Done() <-chan struct{} {
	return rl.stopped
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.hits)
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	defer close(rl.stopped)

	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, times := range rl.hits {
				if live := rl.live(times, now); len(live) > 0 {
					rl.hits[key] = live
				} else {
					delete(rl.hits, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// live drops the hits that fell out of the window. times is in arrival order.
func (rl *RateLimiter) live(times []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(times) && now.Sub(times[i]) >= rl.window {
		i++
	}
	return times[i:]
}

// Allow records a hit for key. When the key is over its limit the hit is
// not recorded and the time until the oldest hit expires is returned.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	times := rl.live(rl.hits[key], now)
	if len(times) >= rl.limit {
		rl.hits[key] = times
		return false, rl.window - now.Sub(times[0])
	}
	rl.hits[key] = append(times, now)
	return true, 0
}

// RateLimit rejects requests once their key is over the limiter's budget
func RateLimit(limiter *RateLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := limiter.Allow(key(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
