package model

import (
	"math"
)

// Position is a geographic coordinate in decimal degrees. Waypoints, trail
// points and picked targets all use it.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Position) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lng)
}

// Round6 returns p with both coordinates rounded to six decimal places.
func (p Position) Round6() Position {
	return Position{Lat: round6(p.Lat), Lng: round6(p.Lng)}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
