package geo

import (
	"math"
	"testing"

	"github.com/kilianp07/erdispatch/core/model"
)

var samples = []model.Location{
	{Lat: 24.4670, Lon: 54.3500},
	{Lat: 25.2048, Lon: 55.2708},
	{Lat: 25.2148, Lon: 55.2808},
	{Lat: -33.8688, Lon: 151.2093},
	{Lat: 0, Lon: 0},
	{Lat: 89.9, Lon: -179.9},
}

func TestDistanceSymmetricAndZero(t *testing.T) {
	for _, a := range samples {
		if d := Distance(a, a); d != 0 {
			t.Fatalf("distance(%v,%v)=%v want 0", a, a, d)
		}
		for _, b := range samples {
			if math.Abs(Distance(a, b)-Distance(b, a)) > 1e-9 {
				t.Fatalf("asymmetric distance between %v and %v", a, b)
			}
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// Abu Dhabi to Dubai is roughly 120 km as the crow flies.
	d := Distance(model.Location{Lat: 24.4539, Lon: 54.3773}, model.Location{Lat: 25.2048, Lon: 55.2708})
	if d < 110 || d > 130 {
		t.Fatalf("unexpected distance %.1f km", d)
	}
}

func TestTravelHoursFloor(t *testing.T) {
	loc := model.Location{Lat: 25.2048, Lon: 55.2708}
	if got := TravelHours(loc, loc, 60, 1e-4); got != 1e-4 {
		t.Fatalf("expected floor, got %v", got)
	}
	far := model.Location{Lat: 25.2148, Lon: 55.2808}
	if got := TravelHours(loc, far, 60, 1e-4); got <= 1e-4 {
		t.Fatalf("expected positive travel time, got %v", got)
	}
	if got := TravelHours(loc, far, 0, 1e-4); !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf for zero speed, got %v", got)
	}
}
