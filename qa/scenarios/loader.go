package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/erdispatch/core/model"
)

type VehicleDef struct {
	ID           string         `yaml:"id"`
	Kind         string         `yaml:"kind"`
	Lat          float64        `yaml:"lat"`
	Lon          float64        `yaml:"lon"`
	Capabilities map[string]int `yaml:"capabilities"`
}

func (v VehicleDef) ToModel() model.Vehicle {
	return model.Vehicle{
		ID:           v.ID,
		Kind:         model.Kind(v.Kind),
		Status:       model.StatusAvailable,
		Location:     model.Location{Lat: v.Lat, Lon: v.Lon},
		Capabilities: v.Capabilities,
	}
}

type IncidentDef struct {
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
}

func (d IncidentDef) ToModel(id string) (model.Incident, error) {
	c, err := model.ParseCategory(d.Category)
	if err != nil {
		return model.Incident{}, err
	}
	return model.Incident{
		ID:          id,
		Category:    c,
		Location:    model.Location{Lat: d.Lat, Lon: d.Lon},
		Description: d.Description,
	}, nil
}

// Expected lists, per incident, the vehicle that must be dispatched. An empty
// id means the incident must fail with no suitable vehicle.
type Expected struct {
	Vehicles []string `yaml:"vehicles"`
}

// Dispatched counts the incidents expected to succeed.
func (e Expected) Dispatched() int {
	n := 0
	for _, id := range e.Vehicles {
		if id != "" {
			n++
		}
	}
	return n
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Vehicles    []VehicleDef  `yaml:"vehicles"`
	Incidents   []IncidentDef `yaml:"incidents"`
	// ReleaseBefore completes the vehicle's mission right before the
	// incident at the given index is handled.
	ReleaseBefore map[string]int `yaml:"release_before,omitempty"`
	Expected      Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Expected.Vehicles) != len(sc.Incidents) {
		return nil, fmt.Errorf("scenario %s: %d incidents but %d expectations", sc.Name, len(sc.Incidents), len(sc.Expected.Vehicles))
	}
	return &sc, nil
}
