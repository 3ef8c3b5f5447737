package geo

import (
	"math"
	"testing"
)

// Zero offsets must be a fixed point of the approximation: the satellite is
// placed exactly at the observer.
func TestApproximateZeroOffsetFixedPoint(t *testing.T) {
	obs := Observer{Latitude: 10, Longitude: 20}

	lat, lon := ApproximatePosition(obs, 0, 0)
	if lat != 10 {
		t.Errorf("latitude = %v, want exactly 10", lat)
	}
	if lon != 20 {
		t.Errorf("longitude = %v, want exactly 20", lon)
	}
}

func TestApproximateKnownOffsets(t *testing.T) {
	obs := Observer{Latitude: 0, Longitude: 0}

	// 111.32 km is one degree of latitude; at the equator it is also one
	// degree of longitude.
	lat, lon := ApproximatePosition(obs, 111.32, 111.32)
	if math.Abs(lat-1) > 1e-9 {
		t.Errorf("latitude = %v, want 1", lat)
	}
	if math.Abs(lon-1) > 1e-9 {
		t.Errorf("longitude = %v, want 1", lon)
	}
}

// At higher latitudes the longitude shift grows, since parallels shrink.
func TestApproximateLongitudeScalesWithLatitude(t *testing.T) {
	equator := Observer{Latitude: 0, Longitude: 0}
	north := Observer{Latitude: 60, Longitude: 0}

	_, lonEq := ApproximatePosition(equator, 0, 100)
	_, lonNorth := ApproximatePosition(north, 0, 100)

	if lonNorth <= lonEq {
		t.Errorf("longitude shift at 60N (%v) should exceed shift at equator (%v)", lonNorth, lonEq)
	}
	// cos(60°) = 0.5, so the shift should roughly double.
	if math.Abs(lonNorth-2*lonEq) > 1e-6 {
		t.Errorf("longitude shift at 60N = %v, want ~%v", lonNorth, 2*lonEq)
	}
}

func TestDefaultVelocity(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{7.2, 7.2},
		{0, 7.8},
		{-1, 7.8},
	}

	for _, tt := range tests {
		if got := DefaultVelocity(tt.in); got != tt.want {
			t.Errorf("DefaultVelocity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
