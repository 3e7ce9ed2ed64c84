package fleet

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
)

func newDefault(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DefaultVehicles()...)
	require.NoError(t, err)
	return r
}

func TestRegistryQueries(t *testing.T) {
	r := newDefault(t)
	all := r.List()
	require.Len(t, all, 3)
	assert.Equal(t, "AMB-001", all[0].ID)
	assert.Equal(t, "FIRE-002", all[1].ID)

	v, ok := r.Get("POL-003")
	require.True(t, ok)
	assert.Equal(t, model.KindPolice, v.Kind)
	_, ok = r.Get("nope")
	assert.False(t, ok)

	medical, err := r.ListByCategory(model.CategoryMedical)
	require.NoError(t, err)
	require.Len(t, medical, 1)
	assert.Equal(t, "AMB-001", medical[0].ID)

	_, err = r.ListByCategory("Flood")
	assert.True(t, errors.Is(err, model.ErrInvalidCategory))
}

func TestRegistryRejectsDuplicatesAndInvalid(t *testing.T) {
	r := newDefault(t)
	err := r.Add(model.Vehicle{ID: "AMB-001", Kind: model.KindAmbulance})
	assert.True(t, errors.Is(err, ErrDuplicateVehicle))
	assert.Error(t, r.Add(model.Vehicle{ID: "X", Kind: "Bicycle"}))
}

func TestTransitionCycle(t *testing.T) {
	r := newDefault(t)
	loc := model.Location{Lat: 25.0, Lon: 55.0}
	for _, s := range []model.Status{model.StatusDispatched, model.StatusEnRoute, model.StatusOnScene, model.StatusAvailable} {
		require.NoError(t, r.Transition("AMB-001", s, loc), s)
	}
	v, _ := r.Get("AMB-001")
	assert.Equal(t, model.StatusAvailable, v.Status)
	assert.Equal(t, loc, v.Location)
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	all := []model.Status{model.StatusAvailable, model.StatusDispatched, model.StatusEnRoute, model.StatusOnScene}
	for _, from := range all {
		for _, to := range all {
			if from == to || from.CanTransition(to) {
				continue
			}
			r, err := NewRegistry(model.Vehicle{ID: "V1", Kind: model.KindAmbulance, Status: from})
			require.NoError(t, err)
			err = r.Transition("V1", to, model.Location{Lat: 1, Lon: 1})
			assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", from, to)
			v, _ := r.Get("V1")
			assert.Equal(t, from, v.Status, "state must be unchanged")
			assert.Equal(t, model.Location{}, v.Location)
		}
	}
}

func TestTransitionIdempotent(t *testing.T) {
	r := newDefault(t)
	var calls int32
	r.SetObserver(ObserverFunc(func(model.Vehicle, model.Status) { atomic.AddInt32(&calls, 1) }))
	loc := model.Location{Lat: 25.3, Lon: 55.3}
	require.NoError(t, r.Transition("FIRE-002", model.StatusDispatched, loc))
	first, _ := r.Get("FIRE-002")
	require.NoError(t, r.Transition("FIRE-002", model.StatusDispatched, loc))
	second, _ := r.Get("FIRE-002")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransitionUnknownVehicle(t *testing.T) {
	r := newDefault(t)
	err := r.Transition("GHOST", model.StatusDispatched, model.Location{})
	assert.True(t, errors.Is(err, ErrVehicleNotFound))
}

func TestClaimIsExclusive(t *testing.T) {
	r := newDefault(t)
	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Claim("AMB-001", string(rune('a'+i)), model.Location{}); err == nil {
				atomic.AddInt32(&wins, 1)
			} else if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	v, _ := r.Get("AMB-001")
	assert.Equal(t, model.StatusDispatched, v.Status)
	assert.NotEmpty(t, v.IncidentID)
	assert.Len(t, r.ListAvailable(), 2)
}

func TestReturnToAvailableClearsIncident(t *testing.T) {
	r := newDefault(t)
	loc := model.Location{Lat: 25.2, Lon: 55.2}
	require.NoError(t, r.Claim("POL-003", "inc-1", loc))
	require.NoError(t, r.Transition("POL-003", model.StatusEnRoute, loc))
	require.NoError(t, r.Transition("POL-003", model.StatusOnScene, loc))
	require.NoError(t, r.Release("POL-003", loc))
	v, _ := r.Get("POL-003")
	assert.Empty(t, v.IncidentID)
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	r := newDefault(t)
	snap := r.ListAvailable()
	snap[0].Capabilities["paramedics"] = 99
	snap[0].Status = model.StatusOnScene
	v, _ := r.Get(snap[0].ID)
	assert.Equal(t, 2, v.Capabilities["paramedics"])
	assert.Equal(t, model.StatusAvailable, v.Status)
}

func TestObserverReceivesPreviousStatus(t *testing.T) {
	r := newDefault(t)
	var got model.Vehicle
	var from model.Status
	r.SetObserver(ObserverFunc(func(v model.Vehicle, f model.Status) { got, from = v, f }))
	require.NoError(t, r.Claim("AMB-001", "inc-9", model.Location{Lat: 1, Lon: 2}))
	assert.Equal(t, model.StatusAvailable, from)
	assert.Equal(t, model.StatusDispatched, got.Status)
	assert.Equal(t, "inc-9", got.IncidentID)

	require.NoError(t, r.UpdateLocation("AMB-001", model.Location{Lat: 3, Lon: 4}))
	assert.Equal(t, model.Location{Lat: 3, Lon: 4}, got.Location)
}
