// Package geo provides great-circle helpers used to estimate travel times.
package geo

import (
	"math"

	"github.com/kilianp07/erdispatch/core/model"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b model.Location) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelHours estimates the time needed to cover the distance between a and
// b at speedKmh. The result never drops below minHours so callers can divide
// by it.
func TravelHours(a, b model.Location, speedKmh, minHours float64) float64 {
	if speedKmh <= 0 {
		return math.Inf(1)
	}
	t := Distance(a, b) / speedKmh
	if t < minHours {
		return minHours
	}
	return t
}
