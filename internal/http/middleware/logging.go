// Package middleware holds the Gin middleware in front of the flight API:
// request correlation, access logging (plain or redacted), panic recovery,
// Prometheus metrics, idempotency key handling, rate limiting and security
// headers.
//
// This file covers correlation, access logging and recovery. Every request
// gets a zerolog.Logger carrying its request id (plus trace and span ids when
// traced). Handlers fetch it with LoggerFrom; services read it from the
// request context with zerolog.Ctx.
//
// Typical order (see internal/http/router.go):
//
//	r.Use(otelgin.Middleware(name))
//	r.Use(RequestID())
//	r.Use(RedactingLogger(RedactOptions{}))  // or Logger()
//	r.Use(Recovery())
//
// RequestID must run before the loggers, and the loggers before Recovery so
// a panic is logged with the request logger.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-flight-info-backend/internal/observability"
)

const (
	// requestIDKey is the Gin context key holding the request id.
	requestIDKey = "requestID"
	// loggerKey is the Gin context key holding the *zerolog.Logger.
	loggerKey = "logger"
	// requestIDHeader is read from requests and echoed on responses.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps the logged query string in bytes.
	maxQueryLogLength = 2048
)

// Caller-supplied request ids are echoed into headers and logs, so only a
// conservative alphabet is accepted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// RequestID propagates X-Request-ID when the caller sent a well-formed one and
// generates a UUID otherwise. The id is stored on the context and echoed on
// the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger returns the plain access-log middleware, used when LOG_REDACT is
// off.
//
// Behavior:
//   - Before the handler, attaches a request-scoped logger with request_id,
//     client_id, method and route path.
//   - After the handler, writes one "request" event with remote address,
//     user agent, truncated query, byte counts, status and latency, plus
//     replayed=true for idempotent replays.
//   - Level: error when the handler recorded Gin errors or returned 5xx,
//     warn for 4xx, info otherwise.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("client_id", ClientID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, &l)

		c.Next()

		ev := l.Info()
		switch {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", c.Errors.String())
		case c.Writer.Status() >= 500:
			ev = l.Error()
		case c.Writer.Status() >= 400:
			ev = l.Warn()
		}
		if c.Writer.Header().Get(HeaderIdempotencyReplayed) == "true" {
			ev = ev.Bool("replayed", true)
		}
		ev.
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", c.Writer.Status()).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Recovery turns a panic into a JSON 500 carrying the request id.
//
// The panic value and stack go to the request logger. If the handler had
// already started the response, only the status is forced, since the body
// cannot be replaced. The error body matches handlers.ErrorResponse with
// code "internal_error".
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			v, _ := c.Get(requestIDKey)
			rid := asString(v)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request logger, or a copy of the global logger when
// no logging middleware ran (for example in handler unit tests).
//
// Example:
//
//	LoggerFrom(c).Error().Err(err).Msg("flight request failed")
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// attachLogger stores lg on the Gin context and on the request context,
// adding trace and span ids when the request is traced.
func attachLogger(c *gin.Context, lg *zerolog.Logger) {
	if traceID, spanID := observability.TraceIDs(c.Request.Context()); traceID != "" {
		l := lg.With().Str("trace_id", traceID).Str("span_id", spanID).Logger()
		lg = &l
	}
	c.Set(loggerKey, lg)
	c.Request = c.Request.WithContext(lg.WithContext(c.Request.Context()))
}

// asString returns v when it is a string and "" otherwise.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
