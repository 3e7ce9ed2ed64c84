package routing

import (
	"context"

	"github.com/kilianp07/erdispatch/core/geo"
	"github.com/kilianp07/erdispatch/core/model"
)

// StraightLineProvider returns a single great-circle route driven at a
// constant speed. It is meant for demonstrations without routing credentials.
type StraightLineProvider struct {
	SpeedKmh float64
}

// NewStraightLineProvider returns a provider driving at speedKmh, 60 km/h when
// speedKmh is not positive.
func NewStraightLineProvider(speedKmh float64) *StraightLineProvider {
	if speedKmh <= 0 {
		speedKmh = 60
	}
	return &StraightLineProvider{SpeedKmh: speedKmh}
}

func (p *StraightLineProvider) Name() string { return "straight" }

func (p *StraightLineProvider) Routes(ctx context.Context, req Request) ([]model.RouteCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	km := geo.Distance(req.Origin, req.Destination)
	return []model.RouteCandidate{{
		Geometry: model.Geometry{
			Type: "LineString",
			Coordinates: [][]float64{
				{req.Origin.Lon, req.Origin.Lat},
				{req.Destination.Lon, req.Destination.Lat},
			},
		},
		Duration: km / p.SpeedKmh * 3600,
		Distance: km * 1000,
	}}, nil
}
