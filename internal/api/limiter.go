package api

import (
	"net/http"
	"sync"

	"github.com/star/skywatch/internal/httputil"
)

// requestLimiter caps concurrent in-flight requests per client IP and
// globally.
type requestLimiter struct {
	mu       sync.Mutex
	inflight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newRequestLimiter(maxPerIP int) *requestLimiter {
	return &requestLimiter{
		inflight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: 1000, // Default global cap.
	}
}

// acquire attempts to register a new in-flight request for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *requestLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inflight[ip] >= l.maxPerIP {
		return false
	}

	l.inflight[ip]++
	l.total++
	return true
}

// release decrements the in-flight count for the given IP.
func (l *requestLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inflight[ip]--
	l.total--
	if l.inflight[ip] <= 0 {
		delete(l.inflight, ip)
	}
}

// limitMiddleware rejects requests with 429 when the client already has
// maxPerIP requests in flight. Probe paths are never limited. The cap
// matters here because a TLE refresh holds the cache lock across a network
// round trip, so piled-up requests are expensive.
func limitMiddleware(l *requestLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := httputil.ClientIP(r, trustProxy)
			if !l.acquire(ip) {
				writeError(w, http.StatusTooManyRequests, "too many concurrent requests")
				return
			}
			defer l.release(ip)

			next.ServeHTTP(w, r)
		})
	}
}
