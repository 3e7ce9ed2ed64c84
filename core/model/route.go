package model

import (
	"math"
	"time"
)

// Geometry is a GeoJSON geometry. Coordinates are [lon, lat] pairs.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// RouteCandidate is one alternative returned by a routing provider.
// Duration is in seconds and Distance in meters.
type RouteCandidate struct {
	Geometry Geometry `json:"geometry"`
	Duration float64  `json:"duration"`
	Distance float64  `json:"distance"`
	Score    float64  `json:"score"`
}

// DispatchResult is the unit published once a vehicle has been assigned.
type DispatchResult struct {
	Incident  Incident       `json:"incident"`
	Vehicle   Vehicle        `json:"vehicle"`
	Route     RouteCandidate `json:"route"`
	Timestamp time.Time      `json:"timestamp"`
}

// ETAMinutes returns the route duration rounded to whole minutes.
func (r DispatchResult) ETAMinutes() int {
	return int(math.Round(r.Route.Duration / 60))
}
