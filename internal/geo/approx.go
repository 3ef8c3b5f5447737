package geo

import "math"

// kmPerDegree is the approximate ground length of one degree of latitude.
const kmPerDegree = 111.32

// defaultLEOVelocityKmS stands in when an upstream candidate carries no
// velocity estimate.
const defaultLEOVelocityKmS = 7.8

// Observer is a ground observer's geodetic location.
type Observer struct {
	Latitude   float64 // degrees north
	Longitude  float64 // degrees east
	AltitudeKm float64
}

// ApproximatePosition places a satellite near the observer using a flat-Earth
// linear offset: the candidate's altitude (km) shifts latitude, its longitude
// delta (km) shifts longitude scaled by the observer's parallel. Low
// fidelity, but always computable; it is the fallback when no TLE data is
// available. Zero offsets are a fixed point: the result is exactly the
// observer's coordinates.
func ApproximatePosition(obs Observer, altitudeKm, longitudeDeltaKm float64) (lat, lon float64) {
	lat = obs.Latitude + altitudeKm/kmPerDegree
	lon = obs.Longitude + longitudeDeltaKm/(kmPerDegree*math.Cos(obs.Latitude*math.Pi/180.0))
	return lat, lon
}

// DefaultVelocity returns v when it is a usable estimate, or the generic LEO
// default otherwise.
func DefaultVelocity(v float64) float64 {
	if v > 0 {
		return v
	}
	return defaultLEOVelocityKmS
}
