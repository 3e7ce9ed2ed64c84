package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/factory"
)

type recordSink struct {
	dispatches int
	states     int
	err        error
}

func (r *recordSink) RecordDispatch(DispatchEvent) error {
	r.dispatches++
	return r.err
}

func (r *recordSink) RecordVehicleState(VehicleStateEvent) error {
	r.states++
	return nil
}

// dispatchOnly does not implement the optional recorders.
type dispatchOnly struct{ n int }

func (d *dispatchOnly) RecordDispatch(DispatchEvent) error { d.n++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{err: errors.New("influx down")}
	s2 := &recordSink{}
	s3 := &dispatchOnly{}
	m := NewMultiSink(s1, s2, s3)

	err := m.RecordDispatch(DispatchEvent{Outcome: OutcomeDispatched})
	assert.EqualError(t, err, "influx down")
	assert.Equal(t, 1, s2.dispatches, "a failing sink must not stop the others")
	assert.Equal(t, 1, s3.n)

	require.NoError(t, m.RecordVehicleState(VehicleStateEvent{}))
	assert.Equal(t, 1, s1.states)
	assert.Equal(t, 1, s2.states)
	require.NoError(t, m.RecordSystemState(SystemStateEvent{State: "Running"}))
}

func TestNewMetricsSink(t *testing.T) {
	require.NoError(t, RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	}))

	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}})
	require.NoError(t, err)
	assert.IsType(t, &recordSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	require.NoError(t, err)
	multi, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, multi.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}
