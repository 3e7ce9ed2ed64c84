package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink is called even when
// one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDispatch(ev DispatchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordVehicleState forwards to the sinks implementing VehicleStateRecorder.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(VehicleStateRecorder); ok {
			if err := rec.RecordVehicleState(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordSystemState forwards to the sinks implementing SystemStateRecorder.
func (m *MultiSink) RecordSystemState(ev SystemStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SystemStateRecorder); ok {
			if err := rec.RecordSystemState(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
