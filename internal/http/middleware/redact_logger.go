// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides RedactingLogger, the access logger used when LOG_REDACT
// is enabled (the default).
//
// What gets scrubbed:
//   - Request headers named in builtinMasked or RedactOptions.MaskHeaders are
//     logged as "[REDACTED]"; other header values are pattern-redacted.
//   - Query parameters listed in secretParams lose their value entirely.
//     A flight version token grants the right to update or delete, so it
//     never reaches the logs.
//   - Any remaining UUIDs and email addresses are replaced by placeholders.
//
// Request and response bodies are never logged. The request-scoped logger is
// attached exactly as Logger does, so LoggerFrom works the same in both modes.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	// uuidRE matches RFC 4122 UUIDs (versions 1-8) anywhere in a string.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-8][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	// emailRE matches plain email addresses.
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

	// Query parameters whose value is dropped whole.
	secretParams = map[string]string{
		"version": "[REDACTED:version]",
	}

	// Headers whose value is dropped whole, merged with RedactOptions.MaskHeaders.
	builtinMasked = []string{"authorization", "cookie", "set-cookie"}
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders names extra request headers (case-insensitive) logged as
	// "[REDACTED]", in addition to Authorization and cookies.
	MaskHeaders []string
}

// redact replaces UUIDs and email addresses inside s.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// redactQuery scrubs a raw query string pair by pair, keeping order. Version
// tokens are dropped entirely; other values are decoded and pattern-redacted.
// Pairs without "=" are kept as they are. The result is truncated to
// maxQueryLogLength.
//
// Example:
//
//	version=6f1c...&contact=ops@example.com&note=x
//	-> version=[REDACTED:version]&contact=[REDACTED:email]&note=x
func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	for i, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		name, err := url.QueryUnescape(k)
		if err != nil {
			name = k
		}
		if repl, ok := secretParams[strings.ToLower(name)]; ok {
			pairs[i] = name + "=" + repl
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		pairs[i] = name + "=" + redact(val)
	}
	return truncate(strings.Join(pairs, "&"), maxQueryLogLength)
}

// RedactingLogger returns an access-log middleware that scrubs what it logs.
//
// Behavior:
//   - Attaches a request-scoped logger (request_id, method, path) for
//     downstream handlers, like Logger.
//   - Captures headers and the scrubbed query before the handler runs, so
//     handlers cannot change what is logged.
//   - Emits one "http_request" event after the handler, at info, warn (4xx)
//     or error (5xx) level.
//
// Bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := make(map[string]struct{}, len(builtinMasked)+len(opts.MaskHeaders))
	for _, h := range append(builtinMasked, opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rid, _ := c.Get(requestIDKey)
		scoped := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, &scoped)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}
		query := redactQuery(c.Request.URL.RawQuery)

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
