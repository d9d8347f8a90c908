// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the request side of idempotent flight creation.
//
// A client retrying POST /flights sends the same Idempotency-Key header. The
// validator checks the key's shape, stores it on the Gin context, and asks
// the idempotency store whether this client already used it. On a hit the
// request is marked as a replay: the handler answers with the stored flight
// id instead of inserting again, and the rate limiter lets it through, since
// a replay never writes.
//
// Keys are scoped per client (see ClientID), so two clients choosing the same
// key never see each other's results. PUT and DELETE ignore the header: the
// flight version token already makes them safe to retry.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's key for a retry-safe POST.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderIdempotencyReplayed is set to "true" on responses answered from a
	// stored result instead of a fresh write.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"

	// HeaderClientID optionally names the calling client. Idempotency keys and
	// rate-limit buckets are scoped per client.
	HeaderClientID = "X-Client-ID"

	// defaultMaxKeyLen caps Idempotency-Key when IdempotencyOptions.MaxLen
	// is unset.
	defaultMaxKeyLen = 200
	// maxClientIDLen caps the X-Client-ID value kept in logs, buckets and
	// stored keys.
	maxClientIDLen = 48
)

// Gin context keys shared by IdempotencyValidator, the handlers and
// RateLimiter.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// defaultKeyPattern admits UUIDs and other token-like keys without spaces
// or separators that would need escaping in logs.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key IdempotencyValidator accepted for this
// request. The boolean is false when the request carried no key, the key was
// rejected, or the method is not POST.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a stored result exists for this client and key.
//
// Handlers use it to skip the insert and answer from the idempotency store.
// It is false when the lookup failed; the handler then performs a fresh
// create and the store's unique (client_id, key) constraint settles races.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions tunes key validation. Zero values select a 200 byte cap
// and an RFC 7230 token-like alphabet.
type IdempotencyOptions struct {
	// MaxLen is the longest accepted key in bytes.
	MaxLen int
	// Pattern must match the whole key.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a still-valid result is stored for
// (clientID, key). Expiry is the lookup's concern.
type IdempotencyLookup func(ctx context.Context, clientID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator returns a Gin middleware that handles the
// Idempotency-Key header on POST requests.
//
// Behavior:
//   - Requests without the header, and non-POST requests, pass through.
//   - A key longer than MaxLen or not matching Pattern is rejected with
//     400 and code "bad_idempotency_key".
//   - A valid key is stored for the handler (see GetIdempotencyKey).
//   - When lookup finds a stored result, the request is flagged as a replay
//     (see IsReplay) and exempted from rate limiting.
//   - Lookup errors are logged at warn level and the request proceeds as a
//     fresh write.
//
// A nil lookup only validates the key. It must run before RateLimiter so the
// bypass flag is set in time.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxKeyLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, err := lookup(c.Request.Context(), ClientID(c), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case exists:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// ClientID identifies the caller: "client:<X-Client-ID>" (capped at 48 bytes)
// when the header is present, otherwise "ip:<client IP>".
//
// The prefix keeps the two namespaces apart, so a client cannot claim
// another caller's IP as its id. The value scopes idempotency keys and
// rate-limit buckets, and is logged as client_id.
func ClientID(c *gin.Context) string {
	if c.Request != nil {
		if v := strings.TrimSpace(c.GetHeader(HeaderClientID)); v != "" {
			if len(v) > maxClientIDLen {
				v = v[:maxClientIDLen]
			}
			return "client:" + v
		}
	}
	return "ip:" + c.ClientIP()
}
