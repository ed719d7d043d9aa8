package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nasaexplorer_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nasaexplorer_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nasaexplorer_upstream_requests_total",
			Help: "Total number of requests issued to NASA upstream APIs.",
		},
		[]string{"provider", "code"},
	)

	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nasaexplorer_upstream_duration_seconds",
			Help:    "NASA upstream request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	upstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nasaexplorer_upstream_retries_total",
			Help: "Total number of retried upstream requests.",
		},
		[]string{"provider"},
	)

	rateLimitWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nasaexplorer_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate-limit slot.",
			Buckets: []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	responseCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nasaexplorer_response_cache_hits_total",
			Help: "Upstream response cache hits.",
		},
	)

	responseCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nasaexplorer_response_cache_misses_total",
			Help: "Upstream response cache misses.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamDurationSeconds)
	prometheus.MustRegister(upstreamRetriesTotal)
	prometheus.MustRegister(rateLimitWaitSeconds)
	prometheus.MustRegister(responseCacheHits)
	prometheus.MustRegister(responseCacheMisses)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstreamRequest records one issued upstream request.
func ObserveUpstreamRequest(provider, code string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(provider, code).Inc()
	upstreamDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// IncUpstreamRetry counts a retried upstream request.
func IncUpstreamRetry(provider string) {
	upstreamRetriesTotal.WithLabelValues(provider).Inc()
}

// ObserveRateLimitWait records how long a caller waited for a slot.
func ObserveRateLimitWait(provider string, wait time.Duration) {
	rateLimitWaitSeconds.WithLabelValues(provider).Observe(wait.Seconds())
}

// IncCacheHit counts a response cache hit.
func IncCacheHit() { responseCacheHits.Inc() }

// IncCacheMiss counts a response cache miss.
func IncCacheMiss() { responseCacheMisses.Inc() }

// knownRoutes are the exact paths the server registers.
var knownRoutes = map[string]bool{
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/apod":            true,
	"/api/v1/apod/range":      true,
	"/api/v1/neo/feed":        true,
	"/api/v1/neo/hazardous":   true,
	"/api/v1/neo/largest":     true,
	"/api/v1/rovers/compare":  true,
	"/api/v1/correlate":       true,
	"/api/v1/correlate/range": true,
	"/api/v1/compare/scale":   true,
}

// normalizeRoute collapses parameterized paths to a single label and unknown
// paths to "other" so scanner traffic cannot explode metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/neo/"); ok {
		if strings.HasSuffix(rest, "/danger") {
			return "/api/v1/neo/{id}/danger"
		}
		return "/api/v1/neo/{id}"
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/rovers/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/api/v1/rovers/{rover}/" + rest[i+1:]
		}
		return "/api/v1/rovers/{rover}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
