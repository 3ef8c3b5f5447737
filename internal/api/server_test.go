package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/star/skywatch/internal/auth"
	"github.com/star/skywatch/internal/geo"
	"github.com/star/skywatch/internal/resolver"
	"github.com/star/skywatch/internal/upstream"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

var testStatic = fstest.MapFS{
	"index.html": &fstest.MapFile{Data: []byte("<html><body>skywatch</body></html>")},
}

type stubISS struct {
	pos upstream.ISSPosition
	err error
}

func (s *stubISS) Position(ctx context.Context) (upstream.ISSPosition, error) {
	return s.pos, s.err
}

type stubNearby struct {
	candidates []upstream.Candidate
	err        error
}

func (s *stubNearby) Above(ctx context.Context, lat, lon, altKm float64, radiusDeg int) ([]upstream.Candidate, error) {
	return s.candidates, s.err
}

type stubPositioner struct {
	resolved  []resolver.Position
	lookupPos resolver.Position
	lookupErr error

	gotLimit int
	gotID    string
}

func (s *stubPositioner) Resolve(ctx context.Context, obs geo.Observer, candidates []upstream.Candidate, limit int) []resolver.Position {
	s.gotLimit = limit
	return s.resolved
}

func (s *stubPositioner) Lookup(ctx context.Context, id string) (resolver.Position, error) {
	s.gotID = id
	return s.lookupPos, s.lookupErr
}

func newTestHandler(iss ISSSource, nearby NearbyFinder, positions Positioner, authCfg auth.Config) http.Handler {
	srv := NewServer(Config{Addr: ":0", MaxConcurrentPerIP: 10}, testLogger, authCfg, iss, nearby, positions, testStatic)
	return srv.HTTPServer().Handler
}

func TestISSPositionEndpoint(t *testing.T) {
	iss := &stubISS{pos: upstream.ISSPosition{Latitude: 12.34, Longitude: -56.78, Timestamp: 1700000000}}
	handler := newTestHandler(iss, &stubNearby{}, &stubPositioner{}, auth.Config{})

	req := httptest.NewRequest(http.MethodGet, "/get_iss_position", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got upstream.ISSPosition
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if got.Latitude != 12.34 || got.Longitude != -56.78 {
		t.Errorf("position = %+v, want lat 12.34 lon -56.78", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestISSPositionEndpointFeedDown(t *testing.T) {
	iss := &stubISS{err: errors.New("connection refused")}
	handler := newTestHandler(iss, &stubNearby{}, &stubPositioner{}, auth.Config{})

	req := httptest.NewRequest(http.MethodGet, "/get_iss_position", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestClosestSatellitesEndpoint(t *testing.T) {
	nearby := &stubNearby{candidates: []upstream.Candidate{
		{ID: "25544", Name: "SPACE STATION", AltitudeKm: 420},
	}}
	positions := &stubPositioner{resolved: []resolver.Position{
		{Name: "SPACE STATION", ID: "25544", Latitude: 10, Longitude: 20, Altitude: 420, Velocity: 7.66},
	}}
	handler := newTestHandler(&stubISS{}, nearby, positions, auth.Config{})

	body := strings.NewReader(`{"latitude": 10, "longitude": 20, "altitude": 0}`)
	req := httptest.NewRequest(http.MethodPost, "/get_closest_satellites", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var got []resolver.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "25544" {
		t.Errorf("results = %+v, want single entry for 25544", got)
	}
	if positions.gotLimit != closestSatelliteLimit {
		t.Errorf("resolve limit = %d, want %d", positions.gotLimit, closestSatelliteLimit)
	}
}

func TestClosestSatellitesEndpointBadBody(t *testing.T) {
	handler := newTestHandler(&stubISS{}, &stubNearby{}, &stubPositioner{}, auth.Config{})

	req := httptest.NewRequest(http.MethodPost, "/get_closest_satellites", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClosestSatellitesEndpointFeedDown(t *testing.T) {
	nearby := &stubNearby{err: errors.New("timeout")}
	handler := newTestHandler(&stubISS{}, nearby, &stubPositioner{}, auth.Config{})

	body := strings.NewReader(`{"latitude": 0, "longitude": 0}`)
	req := httptest.NewRequest(http.MethodPost, "/get_closest_satellites", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// An empty candidate list must serialize as [], not null.
func TestClosestSatellitesEndpointEmptyResult(t *testing.T) {
	handler := newTestHandler(&stubISS{}, &stubNearby{}, &stubPositioner{}, auth.Config{})

	body := strings.NewReader(`{"latitude": 0, "longitude": 0}`)
	req := httptest.NewRequest(http.MethodPost, "/get_closest_satellites", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestSatellitePositionEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		lookupErr  error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"invalid id", fmt.Errorf("%w: %q", resolver.ErrInvalidID, "bogus"), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: 99999", resolver.ErrNotFound), http.StatusNotFound},
		{"upstream down", fmt.Errorf("%w: timeout", resolver.ErrUpstreamUnavailable), http.StatusServiceUnavailable},
		{"propagation failed", fmt.Errorf("%w: decayed", resolver.ErrPropagationFailed), http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := &stubPositioner{
				lookupPos: resolver.Position{Name: "SPACE STATION", ID: "25544"},
				lookupErr: tt.lookupErr,
			}
			handler := newTestHandler(&stubISS{}, &stubNearby{}, positions, auth.Config{})

			req := httptest.NewRequest(http.MethodGet, "/get_satellite_position/25544", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if positions.gotID != "25544" {
				t.Errorf("lookup id = %q, want 25544", positions.gotID)
			}
		})
	}
}

func TestIndexPage(t *testing.T) {
	handler := newTestHandler(&stubISS{}, &stubNearby{}, &stubPositioner{}, auth.Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "skywatch") {
		t.Error("index page missing expected content")
	}
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestHandler(&stubISS{}, &stubNearby{}, &stubPositioner{}, auth.Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthEnforcement(t *testing.T) {
	authCfg := auth.Config{Enabled: true, Token: "secret"}
	iss := &stubISS{pos: upstream.ISSPosition{Latitude: 1, Longitude: 2}}
	handler := newTestHandler(iss, &stubNearby{}, &stubPositioner{}, authCfg)

	tests := []struct {
		name       string
		path       string
		authHeader string
		wantStatus int
	}{
		{"missing token", "/get_iss_position", "", http.StatusUnauthorized},
		{"wrong token", "/get_iss_position", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/get_iss_position", "Bearer secret", http.StatusOK},
		{"healthz exempt", "/healthz", "", http.StatusOK},
		{"metrics exempt", "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
