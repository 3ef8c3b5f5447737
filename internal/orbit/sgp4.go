package orbit

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Selected for: most community adoption (92+ stars), pure Go (no CGO), battle-tested
// since 2016, explicit TEME output.
//
// Note: Propagate() takes Satellite by value so SGP4 error codes are not visible
// to the caller. We detect propagation failures by checking output for NaN/Inf
// and unreasonable position magnitudes.

// SGP4Builder builds Handles backed by the go-satellite SGP4 implementation.
type SGP4Builder struct{}

// NewSGP4Builder returns the production propagation backend.
func NewSGP4Builder() *SGP4Builder {
	return &SGP4Builder{}
}

// Build initializes the SGP4 model for one TLE pair.
//
// Pre-validates TLE format before passing to the library, because go-satellite
// calls log.Fatal on malformed input (which would kill the process).
func (b *SGP4Builder) Build(line1, line2, name string) (Handle, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for %q: %w", name, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for %q: code=%d %s", name, sat.Error, sat.ErrorStr)
	}
	return &sgp4Handle{sat: sat, name: name}, nil
}

// validateTLELines performs basic format validation on TLE lines.
func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

type sgp4Handle struct {
	sat  satellite.Satellite
	name string
}

// Subpoint propagates the satellite to the given instant and converts the
// TEME state vector to a geodetic sub-point.
func (h *sgp4Handle) Subpoint(at time.Time) (Subpoint, error) {
	t := at.UTC()
	pos, vel := satellite.Propagate(h.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	// Detect propagation failures via NaN/Inf check.
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return Subpoint{}, fmt.Errorf("sgp4 propagation failed for %q: output is NaN/Inf", h.name)
	}

	// Sanity check: position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return Subpoint{}, fmt.Errorf("sgp4 propagation failed for %q: unreasonable position magnitude %.1f km", h.name, mag)
	}

	gmst := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	altKm, _, ll := satellite.ECIToLLA(pos, gmst)

	lon := math.Mod(ll.Longitude*180.0/math.Pi, 360.0)
	if lon >= 180.0 {
		lon -= 360.0
	} else if lon < -180.0 {
		lon += 360.0
	}

	return Subpoint{
		Latitude:    ll.Latitude * 180.0 / math.Pi,
		Longitude:   lon,
		AltitudeKm:  altKm,
		VelocityKmS: math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
	}, nil
}
