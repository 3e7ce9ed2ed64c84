package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Medical":            CategoryMedical,
		"fire":               CategoryFire,
		"Police Emergency":   CategoryPolice,
		" medical emergency": CategoryMedical,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCategory("Flood")
	assert.True(t, errors.Is(err, ErrInvalidCategory))
}

func TestStatusCycle(t *testing.T) {
	legal := map[Status]Status{
		StatusAvailable:  StatusDispatched,
		StatusDispatched: StatusEnRoute,
		StatusEnRoute:    StatusOnScene,
		StatusOnScene:    StatusAvailable,
	}
	all := []Status{StatusAvailable, StatusDispatched, StatusEnRoute, StatusOnScene}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[from] == to, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, Status("Parked").CanTransition(StatusAvailable))
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	_, err := ParseSeverity("extreme")
	assert.Error(t, err)
	s, err := ParseSeverity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, s)
}

func TestRequirementMeets(t *testing.T) {
	req := ResourceRequirement{"ambulances": 1, "paramedics": 2}
	assert.True(t, req.Meets(map[string]int{"ambulances": 1, "paramedics": 3}))
	assert.False(t, req.Meets(map[string]int{"ambulances": 1}))
	assert.True(t, ResourceRequirement{}.Meets(nil))
}

func TestVehicleCloneIsDeep(t *testing.T) {
	v := Vehicle{ID: "AMB-001", Crew: []string{"a"}, Capabilities: map[string]int{"paramedics": 2}}
	cp := v.Clone()
	cp.Crew[0] = "b"
	cp.Capabilities["paramedics"] = 9
	assert.Equal(t, "a", v.Crew[0])
	assert.Equal(t, 2, v.Capabilities["paramedics"])
}

func TestIncidentAnnotateCopies(t *testing.T) {
	inc := Incident{ID: "i1"}
	a := inc.Annotate("status", "dispatched")
	assert.Nil(t, inc.Annotations)
	assert.Equal(t, "dispatched", a.Annotations["status"])
}

func TestETAMinutes(t *testing.T) {
	r := DispatchResult{Route: RouteCandidate{Duration: 270}}
	assert.Equal(t, 5, r.ETAMinutes())
}

func TestLocationValidate(t *testing.T) {
	assert.NoError(t, Location{Lat: 24.4539, Lon: 54.3773}.Validate())
	assert.Error(t, Location{Lat: 91}.Validate())
	assert.Error(t, Location{Lon: -181}.Validate())
}
