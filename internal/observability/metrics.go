package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_http_requests_total",
			Help: "Total number of HTTP requests by route.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uniquery_http_request_duration_seconds",
			Help:    "HTTP request latency by route. Ask and query include database time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)
	httpResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uniquery_http_response_size_bytes",
			Help:    "Response body size by route; large values point at wide result sets.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, httpResponseSizeBytes)
}

// routes are the API paths with a bounded label value. Anything else is
// reported as "other" so unknown paths cannot grow the series count.
var routes = map[string]struct{}{
	"/v1/health":    {},
	"/v1/ready":     {},
	"/v1/metrics":   {},
	"/v1/schema":    {},
	"/v1/translate": {},
	"/v1/ask":       {},
	"/v1/query":     {},
	"/v1/history":   {},
}

// RouteLabel maps a request path to its metric label. History entries
// collapse to /v1/history/{id}.
func RouteLabel(path string) string {
	if _, ok := routes[path]; ok {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/v1/history/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/v1/history/{id}"
	}
	return "other"
}

func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration, responseBytes int) {
	route := RouteLabel(path)
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	httpResponseSizeBytes.WithLabelValues(route).Observe(float64(responseBytes))
}
