package fleet

import "github.com/kilianp07/erdispatch/core/model"

// DefaultVehicles returns the demonstration fleet stationed around Dubai.
// Capabilities cover Low severity incidents of each vehicle's category.
func DefaultVehicles() []model.Vehicle {
	return []model.Vehicle{
		{
			ID:           "AMB-001",
			Kind:         model.KindAmbulance,
			Status:       model.StatusAvailable,
			Location:     model.Location{Lat: 25.2048, Lon: 55.2708},
			Crew:         []string{"John Doe", "Jane Smith"},
			Capabilities: map[string]int{"ambulances": 1, "paramedics": 2},
		},
		{
			ID:           "POL-003",
			Kind:         model.KindPolice,
			Status:       model.StatusAvailable,
			Location:     model.Location{Lat: 25.2148, Lon: 55.2808},
			Crew:         []string{"Mike Johnson", "Emily Brown"},
			Capabilities: map[string]int{"policeCars": 2, "officers": 4},
		},
		{
			ID:           "FIRE-002",
			Kind:         model.KindFireTruck,
			Status:       model.StatusAvailable,
			Location:     model.Location{Lat: 25.1948, Lon: 55.2608},
			Crew:         []string{"David Wilson", "Sarah Davis"},
			Capabilities: map[string]int{"fireTrucks": 1, "firefighters": 4},
		},
	}
}
