package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/star/skywatch/internal/auth"
	"github.com/star/skywatch/internal/geo"
	"github.com/star/skywatch/internal/health"
	"github.com/star/skywatch/internal/httputil"
	"github.com/star/skywatch/internal/metrics"
	"github.com/star/skywatch/internal/resolver"
	"github.com/star/skywatch/internal/upstream"
)

// closestSatelliteLimit caps how many of the upstream candidates (ranked
// ascending by altitude) a batch response carries.
const closestSatelliteLimit = 5

// defaultSearchRadiusDeg is used when the batch request omits the radius.
const defaultSearchRadiusDeg = 10

// Config holds HTTP server configuration.
type Config struct {
	Addr               string
	MaxConcurrentPerIP int
	TrustProxy         bool
}

// ISSSource reports the current ISS sub-point.
type ISSSource interface {
	Position(ctx context.Context) (upstream.ISSPosition, error)
}

// NearbyFinder lists satellites currently above an observer, ascending by
// altitude.
type NearbyFinder interface {
	Above(ctx context.Context, lat, lon, altKm float64, radiusDeg int) ([]upstream.Candidate, error)
}

// Positioner resolves satellite positions, batched or single.
type Positioner interface {
	Resolve(ctx context.Context, obs geo.Observer, candidates []upstream.Candidate, limit int) []resolver.Position
	Lookup(ctx context.Context, id string) (resolver.Position, error)
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, authCfg auth.Config, iss ISSSource, nearby NearbyFinder, positions Positioner, static fs.FS) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /get_iss_position", issPositionHandler(logger, iss))
	mux.HandleFunc("POST /get_closest_satellites", closestSatellitesHandler(logger, nearby, positions))
	mux.HandleFunc("GET /get_satellite_position/{id}", satellitePositionHandler(logger, positions))
	mux.Handle("GET /", http.FileServerFS(static))

	// Build middleware chain: metrics -> logging -> auth -> limiter -> mux.
	limiter := newRequestLimiter(cfg.MaxConcurrentPerIP)
	var handler http.Handler = mux
	handler = limitMiddleware(limiter, cfg.TrustProxy)(handler)
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func issPositionHandler(logger *slog.Logger, iss ISSSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos, err := iss.Position(r.Context())
		if err != nil {
			logger.Error("ISS feed unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "failed to fetch ISS data")
			return
		}
		writeJSON(w, http.StatusOK, pos)
	}
}

type closestRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Radius    int     `json:"radius"`
}

func closestSatellitesHandler(logger *slog.Logger, nearby NearbyFinder, positions Positioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req closestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Radius <= 0 {
			req.Radius = defaultSearchRadiusDeg
		}

		candidates, err := nearby.Above(r.Context(), req.Latitude, req.Longitude, req.Altitude, req.Radius)
		if err != nil {
			logger.Error("nearby-satellite feed unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "failed to fetch nearby satellites")
			return
		}

		obs := geo.Observer{
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			AltitudeKm: req.Altitude,
		}
		results := positions.Resolve(r.Context(), obs, candidates, closestSatelliteLimit)
		if results == nil {
			results = []resolver.Position{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func satellitePositionHandler(logger *slog.Logger, positions Positioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		pos, err := positions.Lookup(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, pos)
		case errors.Is(err, resolver.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "invalid satellite id")
		case errors.Is(err, resolver.ErrNotFound):
			writeError(w, http.StatusNotFound, "satellite not found in TLE data")
		case errors.Is(err, resolver.ErrUpstreamUnavailable):
			logger.Error("TLE source unavailable", "catalog_id", id, "error", err)
			writeError(w, http.StatusServiceUnavailable, "TLE source unavailable")
		default:
			logger.Error("satellite position lookup failed", "catalog_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "satellite position unavailable")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := uuid.NewString()
			w.Header().Set("X-Request-Id", reqID)
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
