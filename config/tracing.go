package config

import (
	"fmt"
	"strings"
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	ServiceName string  `json:"service_name"`
	Exporter    string  `json:"exporter"` // stdout | otlp
	Endpoint    string  `json:"endpoint"` // used when Exporter == otlp
	SampleRatio float64 `json:"sample_ratio"`
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "erdispatch"
	}
	if c.Exporter == "" {
		c.Exporter = "stdout"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}

func (c TracingConfig) Validate() error {
	switch strings.ToLower(c.Exporter) {
	case "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("unsupported exporter %s", c.Exporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio %v out of range [0,1]", c.SampleRatio)
	}
	return nil
}
