package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/model"
)

// LoopConfig configures the autonomous loop and its simulated feed.
type LoopConfig struct {
	PollIntervalSeconds int     `json:"poll_interval_seconds"`
	IncidentProbability float64 `json:"incident_probability"`
	Seed                int64   `json:"seed"`
	SpreadDegrees       float64 `json:"spread_degrees"`
	AutoStart           bool    `json:"auto_start"`
}

func (c *LoopConfig) SetDefaults() {
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 5
	}
	if c.IncidentProbability == 0 {
		c.IncidentProbability = 0.2
	}
	if c.SpreadDegrees == 0 {
		c.SpreadDegrees = 0.05
	}
}

func (c LoopConfig) Validate() error {
	if c.IncidentProbability < 0 || c.IncidentProbability > 1 {
		return fmt.Errorf("incident_probability %v out of range [0,1]", c.IncidentProbability)
	}
	if c.SpreadDegrees < 0 {
		return fmt.Errorf("spread_degrees must be positive")
	}
	return nil
}

func (c LoopConfig) Interval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MapConfig is the area the simulated incidents are drawn around.
type MapConfig struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

func (c *MapConfig) SetDefaults() {
	if c.CenterLat == 0 && c.CenterLon == 0 {
		c.CenterLat, c.CenterLon = 24.4539, 54.3773
	}
	if c.Zoom == 0 {
		c.Zoom = 12
	}
}

func (c MapConfig) Validate() error {
	return c.Center().Validate()
}

func (c MapConfig) Center() model.Location {
	return model.Location{Lat: c.CenterLat, Lon: c.CenterLon}
}

// FleetConfig lists the vehicles registered at startup. An empty list seeds
// the default fleet.
type FleetConfig struct {
	Vehicles []model.Vehicle `json:"vehicles"`
}

func (c *FleetConfig) SetDefaults() {
	if len(c.Vehicles) == 0 {
		c.Vehicles = fleet.DefaultVehicles()
	}
	for i := range c.Vehicles {
		if c.Vehicles[i].Status == "" {
			c.Vehicles[i].Status = model.StatusAvailable
		}
	}
}

func (c FleetConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if err := v.Validate(); err != nil {
			return err
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("duplicate vehicle %s", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}
