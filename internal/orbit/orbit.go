package orbit

import "time"

// Subpoint is the point on the WGS-84 ellipsoid directly below a satellite
// at some instant, plus the satellite's speed at that instant.
type Subpoint struct {
	Latitude    float64 // degrees north
	Longitude   float64 // degrees east, normalized to [-180, 180)
	AltitudeKm  float64 // km above the ellipsoid
	VelocityKmS float64 // km/s
}

// Handle is a preinitialized propagator for a single satellite. A Handle is
// built once from a TLE pair and reused for every later propagation call.
// Implementations must be safe for concurrent use.
type Handle interface {
	Subpoint(at time.Time) (Subpoint, error)
}

// Builder constructs propagation handles from raw TLE lines. It is the only
// seam between the TLE pipeline and the orbital model, so the pipeline never
// depends on a specific propagation implementation.
type Builder interface {
	Build(line1, line2, name string) (Handle, error)
}
