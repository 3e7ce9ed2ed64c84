package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/erdispatch/core/factory"
)

// Routing providers.
const (
	RoutingMapbox   = "mapbox"
	RoutingStraight = "straight"
)

// RoutingConfig selects the directions provider.
type RoutingConfig struct {
	Provider  string `json:"provider"`
	BaseURL   string `json:"base_url"`
	Token     string `json:"token"`
	TimeoutMS int    `json:"timeout_ms"`
	// SpeedKmh is used by the straight provider.
	SpeedKmh float64 `json:"speed_kmh"`
}

func (c *RoutingConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = RoutingMapbox
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

func (c RoutingConfig) Validate() error {
	switch c.Provider {
	case RoutingMapbox:
		if c.Token == "" {
			return fmt.Errorf("mapbox provider requires a token")
		}
	case RoutingStraight:
		if c.SpeedKmh < 0 {
			return fmt.Errorf("speed_kmh must be positive")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

func (c RoutingConfig) Timeout() time.Duration {
	return factory.Millis(c.TimeoutMS, 5*time.Second)
}
