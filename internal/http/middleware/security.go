// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets the response hardening headers for the JSON API.
//
// Always set:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Referrer-Policy: no-referrer
//
// Optional, per SecurityOptions:
//   - Permissions-Policy and X-Permitted-Cross-Domain-Policies
//   - Cache-Control: no-store on all responses or only on writes
//   - Strict-Transport-Security on HTTPS requests
//
// It also merges X-Request-ID and the configured names into
// Access-Control-Expose-Headers, so browser clients can read the Location
// of a created flight and the Idempotency-Replayed flag.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when SecurityOptions.HSTSMaxAge is zero.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// HSTS is only sent for HTTPS requests and only when EnableHSTS is set; a
// zero HSTSMaxAge means 180 days. NoStore marks every response uncacheable,
// NoStoreWrites only the responses to POST, PUT, PATCH and DELETE, which carry
// fresh version tokens and ids. ExposeHeaders are merged into
// Access-Control-Expose-Headers next to X-Request-ID.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS max-age; rounded down to whole seconds.
	HSTSMaxAge time.Duration
	// NoStore marks every response uncacheable.
	NoStore bool
	// NoStoreWrites marks only write responses uncacheable.
	NoStoreWrites bool
	// EnablePolicy adds Permissions-Policy and cross-domain policy headers.
	EnablePolicy bool
	// ExposeHeaders are extra names for Access-Control-Expose-Headers.
	ExposeHeaders []string
}

// SecurityHeaders returns a middleware that adds the response hardening
// headers before the handler runs, so they are present on error responses
// written by later middleware too.
//
// The HSTS value is computed once. X-Request-ID is exposed only when
// RequestID already ran and set it.
//
// Example:
//
//	r.Use(SecurityHeaders(SecurityOptions{
//	    NoStoreWrites: true,
//	    ExposeHeaders: []string{"Location", HeaderIdempotencyReplayed},
//	}))
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore || (opt.NoStoreWrites && isWrite(c.Request.Method)) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		expose := opt.ExposeHeaders
		if h.Get(requestIDHeader) != "" {
			expose = append([]string{requestIDHeader}, expose...)
		}
		mergeExposeHeaders(h, expose)

		c.Next()
	}
}

// mergeExposeHeaders appends names to Access-Control-Expose-Headers, skipping
// ones already listed (case-insensitive). Names set earlier, for example by
// the CORS middleware, keep their position.
func mergeExposeHeaders(h http.Header, names []string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	seen := map[string]struct{}{}
	for _, p := range strings.Split(cur, ",") {
		if p = strings.TrimSpace(p); p != "" {
			seen[strings.ToLower(p)] = struct{}{}
		}
	}
	for _, n := range names {
		k := strings.ToLower(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(hdr, cur)
	}
}

// isWrite reports whether method changes server state.
func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// isHTTPS reports whether the request arrived over TLS, directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
