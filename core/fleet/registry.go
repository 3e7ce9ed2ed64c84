// Package fleet owns the emergency vehicle records. Every mutation goes
// through Registry so that status changes follow the dispatch cycle and two
// incidents can never claim the same vehicle.
package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/erdispatch/core/model"
)

var (
	// ErrVehicleNotFound is returned for unknown vehicle ids.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrInvalidTransition is returned when a status change leaves the
	// Available -> Dispatched -> EnRoute -> OnScene -> Available cycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateVehicle is returned by Add for an id already registered.
	ErrDuplicateVehicle = errors.New("vehicle already registered")
)

// Observer is notified after every successful mutation with a copy of the
// new vehicle state and its previous status.
type Observer interface {
	VehicleChanged(v model.Vehicle, from model.Status)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(v model.Vehicle, from model.Status)

func (f ObserverFunc) VehicleChanged(v model.Vehicle, from model.Status) { f(v, from) }

type record struct {
	mu sync.Mutex
	v  model.Vehicle
}

func (r *record) snapshot() model.Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v.Clone()
}

// Registry is the single source of truth for vehicle state. The map lock
// only guards membership; each vehicle record carries its own lock.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*record
	observer Observer
}

// NewRegistry builds a registry holding the given vehicles.
func NewRegistry(vehicles ...model.Vehicle) (*Registry, error) {
	r := &Registry{records: make(map[string]*record, len(vehicles))}
	for _, v := range vehicles {
		if err := r.Add(v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetObserver configures the change observer. It must be called before the
// registry is shared between goroutines.
func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	r.observer = o
	r.mu.Unlock()
}

// Add registers a new vehicle.
func (r *Registry) Add(v model.Vehicle) error {
	if v.Status == "" {
		v.Status = model.StatusAvailable
	}
	if err := v.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[v.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVehicle, v.ID)
	}
	r.records[v.ID] = &record{v: v.Clone()}
	return nil
}

func (r *Registry) lookup(id string) (*record, Observer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	return rec, r.observer, nil
}

func (r *Registry) collect(keep func(model.Vehicle) bool) []model.Vehicle {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	res := make([]model.Vehicle, 0, len(recs))
	for _, rec := range recs {
		v := rec.snapshot()
		if keep == nil || keep(v) {
			res = append(res, v)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// List returns a snapshot of every vehicle ordered by id.
func (r *Registry) List() []model.Vehicle { return r.collect(nil) }

// ListAvailable returns a snapshot of the Available vehicles ordered by id.
func (r *Registry) ListAvailable() []model.Vehicle {
	return r.collect(func(v model.Vehicle) bool { return v.Status == model.StatusAvailable })
}

// ListByCategory returns the vehicles whose kind natively serves category c.
func (r *Registry) ListByCategory(c model.Category) ([]model.Vehicle, error) {
	kind, err := model.KindFor(c)
	if err != nil {
		return nil, err
	}
	return r.collect(func(v model.Vehicle) bool { return v.Kind == kind }), nil
}

// Get returns a copy of the vehicle.
func (r *Registry) Get(id string) (model.Vehicle, bool) {
	rec, _, err := r.lookup(id)
	if err != nil {
		return model.Vehicle{}, false
	}
	return rec.snapshot(), true
}

// Transition moves the vehicle to status to at location loc. Repeating the
// current status with the current location is a no-op.
func (r *Registry) Transition(id string, to model.Status, loc model.Location) error {
	return r.mutate(id, func(v *model.Vehicle) (bool, error) {
		if v.Status == to && v.Location == loc {
			return false, nil
		}
		if !v.Status.CanTransition(to) {
			return false, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, v.ID, v.Status, to)
		}
		v.Status = to
		v.Location = loc
		if to == model.StatusAvailable {
			v.IncidentID = ""
		}
		return true, nil
	})
}

// Claim binds an Available vehicle to an incident and marks it Dispatched.
// A vehicle already bound to an incident is rejected with
// ErrInvalidTransition, so concurrent dispatches cannot share it.
func (r *Registry) Claim(id, incidentID string, loc model.Location) error {
	return r.mutate(id, func(v *model.Vehicle) (bool, error) {
		if v.Status != model.StatusAvailable {
			return false, fmt.Errorf("%w: %s is %s (incident %s)", ErrInvalidTransition, v.ID, v.Status, v.IncidentID)
		}
		v.Status = model.StatusDispatched
		v.Location = loc
		v.IncidentID = incidentID
		return true, nil
	})
}

// UpdateLocation records a new position without changing status.
func (r *Registry) UpdateLocation(id string, loc model.Location) error {
	return r.mutate(id, func(v *model.Vehicle) (bool, error) {
		if v.Location == loc {
			return false, nil
		}
		v.Location = loc
		return true, nil
	})
}

func (r *Registry) mutate(id string, fn func(v *model.Vehicle) (bool, error)) error {
	rec, obs, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	from := rec.v.Status
	next := rec.v.Clone()
	changed, err := fn(&next)
	if err == nil && changed {
		rec.v = next
	}
	rec.mu.Unlock()
	if err != nil {
		return err
	}
	if changed && obs != nil {
		obs.VehicleChanged(next.Clone(), from)
	}
	return nil
}

// Release returns an OnScene vehicle to Available at loc.
func (r *Registry) Release(id string, loc model.Location) error {
	return r.Transition(id, model.StatusAvailable, loc)
}
