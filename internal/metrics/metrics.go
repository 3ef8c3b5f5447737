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
			Name: "skywatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywatch_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_tle_cache_hits_total",
		Help: "TLE cache lookups answered without a refresh.",
	})

	tleCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_tle_cache_misses_total",
		Help: "TLE cache lookups that triggered a refresh.",
	})

	tleCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skywatch_tle_cache_entries",
		Help: "Number of entries currently held by the TLE cache.",
	})

	tleFetchDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skywatch_tle_fetch_duration_seconds",
		Help:    "TLE source fetch duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	tleFetchErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_tle_fetch_errors_total",
		Help: "Failed TLE source fetches.",
	})

	propagationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_propagation_failures_total",
		Help: "Per-satellite propagation failures.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleCacheHitsTotal,
		tleCacheMissesTotal,
		tleCacheEntries,
		tleFetchDurationSeconds,
		tleFetchErrorsTotal,
		propagationFailuresTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTLECacheHit increments the cache hit counter.
func RecordTLECacheHit() { tleCacheHitsTotal.Inc() }

// RecordTLECacheMiss increments the cache miss counter.
func RecordTLECacheMiss() { tleCacheMissesTotal.Inc() }

// SetTLECacheEntries updates the cache entry gauge.
func SetTLECacheEntries(n int) { tleCacheEntries.Set(float64(n)) }

// ObserveTLEFetch records the duration of one TLE source fetch.
func ObserveTLEFetch(d time.Duration) { tleFetchDurationSeconds.Observe(d.Seconds()) }

// RecordTLEFetchError increments the fetch error counter.
func RecordTLEFetchError() { tleFetchErrorsTotal.Inc() }

// RecordPropagationFailure increments the per-satellite propagation failure counter.
func RecordPropagationFailure() { propagationFailuresTotal.Inc() }

// knownRoutes are exact paths recorded verbatim as metric labels.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/get_iss_position":       true,
	"/get_closest_satellites": true,
}

// normalizeRoute collapses parameterized and unknown paths so metric label
// cardinality stays bounded regardless of what clients request.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/get_satellite_position/") {
		return "/get_satellite_position/{id}"
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
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
