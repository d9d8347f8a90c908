// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic under the
// "flightinfo" namespace. Metrics() records request counts, latencies,
// in-flight concurrency and response sizes with bounded labels:
//
//   - method: HTTP method verb (GET/POST/...)
//   - route:  the registered Gin route (e.g. /api/flights/:id), or
//     "unmatched" when no route matched
//   - status: numeric status code as a string (e.g. "200", "409")
//
// It also counts idempotent replays, so retried creates are visible apart
// from fresh ones. All collectors are registered on the default registry and
// are safe for concurrent use.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "flightinfo"

	// unmatchedRoute labels requests no route matched, so scanners hitting
	// random URLs cannot grow the label set.
	unmatchedRoute = "unmatched"
)

var (
	// httpReqs counts requests by method, route and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// httpLat records request duration in seconds by method and route.
	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// httpInflight tracks requests currently in the handler chain.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "Requests currently being served.",
		},
	)

	// httpRespSize observes body bytes written. Flight lists are the large
	// responses; single flights sit well under 1KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size by method and route.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "route"},
	)

	// idemReplays counts POSTs answered from a stored Idempotency-Key result
	// instead of creating a new flight.
	idemReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "idempotent_replays_total",
			Help:      "Writes answered from a stored Idempotency-Key result.",
		},
		[]string{"route"},
	)
)

// init registers the collectors once per process. Tests read them through
// prometheus/testutil rather than registering their own copies.
func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, idemReplays)
}

// Metrics returns a Gin middleware that records Prometheus metrics for each
// request.
//
// Behavior:
//   - Increments the in-flight gauge on entry and decrements it on exit.
//   - After the chain runs, labels by c.FullPath() so path parameters never
//     reach the label set; unmatched requests share one label.
//   - Observes response size only when a body was written.
//   - Counts a replay when the handler set Idempotency-Replayed: true.
//
// Register it before handlers so their latency is included, and expose the
// default registry with promhttp on /metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
		if c.Writer.Header().Get(HeaderIdempotencyReplayed) == "true" {
			idemReplays.WithLabelValues(route).Inc()
		}
	}
}
