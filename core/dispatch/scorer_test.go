package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/geo"
	"github.com/kilianp07/erdispatch/core/model"
)

var medicalHigh = model.ResourceRequirement{"ambulances": 4, "paramedics": 8, "helicopter": 1}

func ambulance(id string, loc model.Location) model.Vehicle {
	return model.Vehicle{
		ID:           id,
		Kind:         model.KindAmbulance,
		Status:       model.StatusAvailable,
		Location:     loc,
		Capabilities: map[string]int{"ambulances": 4, "paramedics": 8, "helicopter": 1},
	}
}

// offsetKm returns a point roughly km kilometers north of base.
func offsetKm(base model.Location, km float64) model.Location {
	return model.Location{Lat: base.Lat + km/111.195, Lon: base.Lon}
}

func highMedical(loc model.Location) model.Incident {
	return model.Incident{ID: "inc-1", Category: model.CategoryMedical, Location: loc, Severity: model.SeverityHigh, Requirements: medicalHigh}
}

func TestSelectVehiclePrefersCloser(t *testing.T) {
	site := model.Location{Lat: 25.2, Lon: 55.27}
	near := ambulance("AMB-2", offsetKm(site, 5))
	far := ambulance("AMB-1", offsetKm(site, 10))
	s := NewScorer()

	got, err := s.SelectVehicle(context.Background(), []model.Vehicle{far, near}, highMedical(site))
	require.NoError(t, err)
	assert.Equal(t, "AMB-2", got.ID)

	scores := s.Scores()
	require.Len(t, scores, 2)
	assert.InDelta(t, 12.0, scores["AMB-2"], 0.05)
	assert.InDelta(t, 6.0, scores["AMB-1"], 0.05)
}

func TestSelectVehicleRequiresResources(t *testing.T) {
	site := model.Location{Lat: 25.2, Lon: 55.27}
	under := ambulance("AMB-0", site)
	under.Capabilities = map[string]int{"ambulances": 1, "paramedics": 2}
	equipped := ambulance("AMB-9", offsetKm(site, 20))

	got, err := NewScorer().SelectVehicle(context.Background(), []model.Vehicle{under, equipped}, highMedical(site))
	require.NoError(t, err)
	assert.Equal(t, "AMB-9", got.ID)

	_, err = NewScorer().SelectVehicle(context.Background(), []model.Vehicle{under}, highMedical(site))
	assert.True(t, errors.Is(err, ErrNoSuitableVehicle))
}

func TestSelectVehicleNoCandidates(t *testing.T) {
	_, err := NewScorer().SelectVehicle(context.Background(), nil, highMedical(model.Location{}))
	assert.True(t, errors.Is(err, ErrNoSuitableVehicle))
}

func TestSelectVehicleTieBreaksOnID(t *testing.T) {
	site := model.Location{Lat: 25.2, Lon: 55.27}
	loc := offsetKm(site, 3)
	got, err := NewScorer(WithConcurrency(1)).SelectVehicle(context.Background(),
		[]model.Vehicle{ambulance("AMB-C", loc), ambulance("AMB-A", loc), ambulance("AMB-B", loc)},
		highMedical(site))
	require.NoError(t, err)
	assert.Equal(t, "AMB-A", got.ID)
}

func TestSelectVehicleAtIncidentIsFinite(t *testing.T) {
	site := model.Location{Lat: 25.2, Lon: 55.27}
	s := NewScorer()
	got, err := s.SelectVehicle(context.Background(), []model.Vehicle{ambulance("AMB-1", site)}, highMedical(site))
	require.NoError(t, err)
	assert.Equal(t, "AMB-1", got.ID)
	assert.InDelta(t, 1/MinTravelHours, s.Scores()["AMB-1"], 1e-6)
}

func TestScoreMonotonicInTime(t *testing.T) {
	inc := highMedical(model.Location{})
	v := ambulance("AMB-1", model.Location{})
	prev := ScoreVehicle(MinTravelHours, v, inc)
	for _, h := range []float64{0.01, 0.1, 0.5, 1, 3} {
		cur := ScoreVehicle(h, v, inc)
		assert.Less(t, cur, prev, "hours=%v", h)
		prev = cur
	}
}

func TestScoreMonotonicInSeverity(t *testing.T) {
	v := ambulance("AMB-1", model.Location{})
	var prev float64
	for i := len(model.Severities) - 1; i >= 0; i-- {
		inc := model.Incident{Severity: model.Severities[i]}
		cur := ScoreVehicle(0.2, v, inc)
		assert.Greater(t, cur, prev, model.Severities[i])
		prev = cur
	}
}

func TestSelectVehicleDoesNotMutateCandidates(t *testing.T) {
	site := model.Location{Lat: 25.2, Lon: 55.27}
	cands := []model.Vehicle{ambulance("AMB-1", offsetKm(site, 1))}
	got, err := NewScorer().SelectVehicle(context.Background(), cands, highMedical(site))
	require.NoError(t, err)
	got.Capabilities["paramedics"] = 0
	assert.Equal(t, 8, cands[0].Capabilities["paramedics"])
}

type failingEstimator struct{}

func (failingEstimator) TravelHours(context.Context, model.Location, model.Location) (float64, error) {
	return 0, errors.New("estimator offline")
}

func TestSelectVehicleEstimatorError(t *testing.T) {
	_, err := NewScorer(WithEstimator(failingEstimator{})).SelectVehicle(context.Background(),
		[]model.Vehicle{ambulance("AMB-1", model.Location{})}, highMedical(model.Location{}))
	assert.EqualError(t, err, "estimate AMB-1: estimator offline")
}

func TestHaversineEstimator(t *testing.T) {
	a := model.Location{Lat: 25.2, Lon: 55.27}
	b := offsetKm(a, 30)
	h, err := HaversineEstimator{}.TravelHours(context.Background(), a, b)
	require.NoError(t, err)
	assert.InDelta(t, geo.Distance(a, b)/AssumedSpeedKmh, h, 1e-9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = HaversineEstimator{}.TravelHours(ctx, a, b)
	assert.ErrorIs(t, err, context.Canceled)
}
