// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides an in-memory, per-client rate limiter built on
// golang.org/x/time/rate.
//
// Overview:
//   - Each identity (see KeyFunc) owns two token buckets: one for reads
//     (GET, HEAD, OPTIONS) and one for writes (POST, PUT, PATCH, DELETE).
//   - Tokens refill at rps per second up to burst.
//   - A request without a token gets 429 with a Retry-After header and the
//     standard JSON error body.
//   - Idempotent replays flagged by IdempotencyValidator spend no tokens.
//   - Buckets idle for longer than visitorTTL are swept periodically.
//
// State is per process. Several replicas behind a load balancer each apply
// the limit on their own.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// visitorTTL is how long an idle bucket survives a sweep.
	visitorTTL = 10 * time.Minute
	// sweepEvery is the number of bucket lookups between sweeps.
	sweepEvery = 5000

	classRead    = "read"
	classWrite   = "write"
	codeRateLmtd = "rate_limited"
)

// KeyFunc maps a request to the identity its bucket is keyed by.
type KeyFunc func(*gin.Context) string

// KeyByClient keys buckets by ClientID ("client:<X-Client-ID>" or "ip:<addr>").
func KeyByClient() KeyFunc {
	return ClientID
}

// visitor is one bucket and the last time it was used.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-process token-bucket limiter. Each identity gets one
// bucket for reads and a separate one for writes, so a client polling the
// search endpoint does not lock itself out of updating a flight. Buckets idle
// for longer than ttl are swept every sweepEvery lookups.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  uint64
}

// NewRateLimiter builds a limiter allowing rps tokens per second with the
// given burst (coerced to at least 1). keyFn decides which requests share a
// bucket; KeyByClient is the usual choice.
//
// Example:
//
//	rl := NewRateLimiter(cfg.RateRPS, cfg.RateBurst, KeyByClient())
//	r.Use(rl.Handler())
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		ttl:      visitorTTL,
		visitors: make(map[string]*visitor),
	}
}

// bucket returns the limiter for key, creating it on first use. Stale entries
// are swept before the lookup so a stale key is recreated fresh.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator found a stored result for
// this request; replays do not spend tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware that enforces the limit.
//
// Behavior:
//   - Replays (IsRateBypass) pass without touching a bucket.
//   - Otherwise one token is reserved from the caller's read or write
//     bucket. If it is available now the request proceeds.
//   - If not, the reservation is cancelled so the token is not lost, and the
//     request is aborted with 429, code "rate_limited", and Retry-After set
//     to the refill delay in whole seconds (at least 1).
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.keyFn(c) + "|" + methodClass(c.Request.Method))
		res := lim.Reserve()
		delay := res.Delay()
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.Cancel()

		c.Header("Retry-After", retryAfter(delay, res.OK()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       codeRateLmtd,
			"message":    "rate limit exceeded",
		})
	}
}

// methodClass picks the bucket suffix for method.
func methodClass(method string) string {
	if isWrite(method) {
		return classWrite
	}
	return classRead
}

// retryAfter renders a delay as whole seconds. A reservation that can never
// succeed (zero rate) still advertises one second.
func retryAfter(d time.Duration, ok bool) string {
	if !ok || d <= 0 || d == rate.InfDuration {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
