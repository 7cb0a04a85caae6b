package mission

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

// EarthRadiusMeters is the mean Earth radius used for distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle (haversine) distance between a and b in
// meters.
func Distance(a, b model.Position) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * EarthRadiusMeters
}

// Progress converts the distance captured at assignment and the remaining
// distance into a percentage in [0,100].
func Progress(total, remaining float64) float64 {
	if math.IsNaN(total) || math.IsNaN(remaining) {
		return 0
	}
	if total <= 0 {
		if remaining <= 0 {
			return 100
		}
		return 0
	}
	p := 100 * (total - remaining) / total
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
