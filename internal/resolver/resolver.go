package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/star/skywatch/internal/geo"
	"github.com/star/skywatch/internal/metrics"
	"github.com/star/skywatch/internal/tle"
	"github.com/star/skywatch/internal/upstream"
)

// Error kinds for the single-satellite lookup path. Callers match with
// errors.Is and map each kind to its own failure mode.
var (
	ErrInvalidID           = errors.New("invalid satellite id")
	ErrNotFound            = errors.New("satellite not found")
	ErrUpstreamUnavailable = errors.New("TLE source unavailable")
	ErrPropagationFailed   = errors.New("propagation failed")
)

var idPattern = regexp.MustCompile(`^[0-9]{1,5}$`)

// Position is a fully populated per-satellite answer. Fields come either
// entirely from the flat-Earth approximation or entirely from propagation,
// never a mix.
type Position struct {
	Name      string  `json:"name"`
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Velocity  float64 `json:"velocity"`
}

// Catalog supplies TLE records, cached or fresh. Get degrades to an empty
// map when the source is unavailable; Direct bypasses the cache entirely and
// reports source failures.
type Catalog interface {
	Get(ctx context.Context, ids []string) map[string]tle.Record
	Direct(ctx context.Context, ids []string) (map[string]tle.Record, error)
}

// Resolver merges approximate, immediately-available position estimates with
// precise propagated positions when the TLE catalog can supply them.
type Resolver struct {
	catalog Catalog
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Resolver over the given catalog.
func New(catalog Catalog, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
}

// Resolve produces a position for each of the first limit candidates,
// preserving their order (the upstream finder ranks them ascending by
// altitude). TLE data for the whole batch is requested in one cache call.
// Any satellite whose TLE is missing or whose propagation fails keeps its
// approximate position; one bad satellite never affects the others and the
// batch as a whole never fails.
func (r *Resolver) Resolve(ctx context.Context, obs geo.Observer, candidates []upstream.Candidate, limit int) []Position {
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	records := map[string]tle.Record{}
	if len(ids) > 0 {
		records = r.catalog.Get(ctx, ids)
	}

	at := r.now()
	results := make([]Position, 0, len(candidates))
	for _, c := range candidates {
		lat, lon := geo.ApproximatePosition(obs, c.AltitudeKm, c.LongitudeDeg)
		pos := Position{
			Name:      c.Name,
			ID:        c.ID,
			Latitude:  lat,
			Longitude: lon,
			Altitude:  c.AltitudeKm,
			Velocity:  geo.DefaultVelocity(c.VelocityKmS),
		}

		if rec, ok := records[c.ID]; ok {
			sp, err := rec.Handle.Subpoint(at)
			if err != nil {
				metrics.RecordPropagationFailure()
				r.logger.Warn("propagation failed, keeping approximate position",
					"catalog_id", c.ID, "error", err)
			} else {
				pos.Latitude = sp.Latitude
				pos.Longitude = sp.Longitude
				pos.Altitude = sp.AltitudeKm
				pos.Velocity = sp.VelocityKmS
			}
		}

		results = append(results, pos)
	}

	return results
}

// Lookup resolves a single satellite by catalog id. Unlike the batch path
// there is no peer to fall back on, so every failure kind is surfaced:
// ErrInvalidID before any I/O, ErrUpstreamUnavailable on a failed direct
// fetch, ErrNotFound when the id is absent from both the cache and a direct
// re-fetch, ErrPropagationFailed when the orbit computation itself fails.
//
// The direct fetch on a cache miss deliberately does not populate the cache:
// a singleton entry would shadow a future multi-id entry covering the same
// satellite.
func (r *Resolver) Lookup(ctx context.Context, id string) (Position, error) {
	if !idPattern.MatchString(id) {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	records := r.catalog.Get(ctx, []string{id})
	rec, ok := records[id]
	if !ok {
		direct, err := r.catalog.Direct(ctx, []string{id})
		if err != nil {
			return Position{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		rec, ok = direct[id]
		if !ok {
			return Position{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}

	sp, err := rec.Handle.Subpoint(r.now())
	if err != nil {
		metrics.RecordPropagationFailure()
		return Position{}, fmt.Errorf("%w: %v", ErrPropagationFailed, err)
	}

	return Position{
		Name:      rec.Name,
		ID:        id,
		Latitude:  sp.Latitude,
		Longitude: sp.Longitude,
		Altitude:  sp.AltitudeKm,
		Velocity:  sp.VelocityKmS,
	}, nil
}
