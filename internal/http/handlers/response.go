// Package handlers implements the flight and airport endpoints.
//
// This file holds the response helpers shared by every handler: the error
// envelope, the failure writers, and the success writer. Handlers never
// build error bodies by hand, so clients can rely on a single shape.
//
// Conventions:
//   - Every failure is an ErrorResponse with a stable `code` (see errors.go).
//   - Service errors are translated to HTTP in one place, writeServiceError in
//     flight_handler.go. Handlers only call fail directly for transport-level
//     problems such as a malformed body or query.
//   - `details` is present only for validation_failed and lists every
//     violated rule in field order.
//   - 5xx responses are logged with the request-scoped logger; their message
//     never carries the underlying error text.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "validation_failed",
//	  "message": "one or more validation errors occurred",
//	  "details": ["Value must be 4 character ICAO airport identifier"]
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	Location: /api/flights/42
//	{ "id": 42 }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-flight-info-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: correlation ID echoed from the X-Request-ID response header,
//     used to match client-side failures with server logs.
//   - Code: a stable, machine-readable string (see errors.go constants).
//   - Message: a human-readable description, safe to show to users. For a
//     delete request with a bad id or version it is the request summary.
//   - Details: the individual rule messages for validation_failed; omitted
//     for every other code.
//
// This struct is referenced by the Swagger annotations on each handler.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Individual violations (validation_failed only)
	Details []string `json:"details,omitempty" example:"Value must be 1 to 7 alphanumeric characters"`
}

// fail aborts the request with a structured error and no details.
//
// It is a shorthand for failDetails with a nil slice; see there for the
// logging behaviour.
func fail(c *gin.Context, status int, code, msg string) {
	failDetails(c, status, code, msg, nil)
}

// failDetails aborts the request with an ErrorResponse carrying details.
//
// It reads the request id that middleware.RequestID already set on the
// response, writes the envelope with gin.Context.AbortWithStatusJSON, and
// stops the handler chain. Server errors (>=500) are logged through the
// request-scoped logger so the log line carries request and trace ids.
func failDetails(c *gin.Context, status int, code, msg string, details []string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
		Details:   details,
	}

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported form of fail. The router uses it for NoRoute and
// NoMethod so unmatched requests get the same envelope as handler errors.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a successful JSON response with the given status.
//
// Handlers use it for 200 and 201 bodies; a DELETE success writes no body and
// calls c.Status directly.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
