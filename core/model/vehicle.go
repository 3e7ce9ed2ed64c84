package model

import "fmt"

// Kind is the type of an emergency vehicle.
type Kind string

const (
	KindAmbulance Kind = "Ambulance"
	KindFireTruck Kind = "FireTruck"
	KindPolice    Kind = "Police"
)

// KindFor returns the vehicle kind that natively serves the category.
func KindFor(c Category) (Kind, error) {
	switch c {
	case CategoryMedical:
		return KindAmbulance, nil
	case CategoryFire:
		return KindFireTruck, nil
	case CategoryPolice:
		return KindPolice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
}

// Status is the lifecycle state of a vehicle.
type Status string

const (
	StatusAvailable  Status = "Available"
	StatusDispatched Status = "Dispatched"
	StatusEnRoute    Status = "EnRoute"
	StatusOnScene    Status = "OnScene"
)

// Next returns the only status reachable from s.
func (s Status) Next() Status {
	switch s {
	case StatusAvailable:
		return StatusDispatched
	case StatusDispatched:
		return StatusEnRoute
	case StatusEnRoute:
		return StatusOnScene
	case StatusOnScene:
		return StatusAvailable
	default:
		return ""
	}
}

// CanTransition reports whether moving from s to to follows the
// Available -> Dispatched -> EnRoute -> OnScene -> Available cycle.
func (s Status) CanTransition(to Status) bool {
	return to != "" && s.Next() == to
}

// Vehicle is an emergency vehicle tracked by the fleet registry.
type Vehicle struct {
	ID       string   `json:"id" mapstructure:"id"`
	Kind     Kind     `json:"kind" mapstructure:"kind"`
	Status   Status   `json:"status" mapstructure:"status"`
	Location Location `json:"location" mapstructure:"location"`
	Crew     []string `json:"crew,omitempty" mapstructure:"crew"`
	// Capabilities counts the resources the vehicle brings (paramedics,
	// ambulances, helicopter...).
	Capabilities map[string]int `json:"capabilities,omitempty" mapstructure:"capabilities"`
	// IncidentID references the active incident while the vehicle is not
	// Available.
	IncidentID string `json:"incident_id,omitempty" mapstructure:"-"`
}

// Validate checks the static fields of the vehicle.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	switch v.Kind {
	case KindAmbulance, KindFireTruck, KindPolice:
	default:
		return fmt.Errorf("vehicle %s: unknown kind %q", v.ID, v.Kind)
	}
	switch v.Status {
	case StatusAvailable, StatusDispatched, StatusEnRoute, StatusOnScene:
	default:
		return fmt.Errorf("vehicle %s: unknown status %q", v.ID, v.Status)
	}
	return nil
}

// Clone returns a deep copy so callers never alias registry state.
func (v Vehicle) Clone() Vehicle {
	if v.Crew != nil {
		v.Crew = append([]string(nil), v.Crew...)
	}
	if v.Capabilities != nil {
		caps := make(map[string]int, len(v.Capabilities))
		for k, n := range v.Capabilities {
			caps[k] = n
		}
		v.Capabilities = caps
	}
	return v
}
