package config

import (
	"fmt"

	"github.com/kilianp07/erdispatch/infra/mqtt"
	"github.com/kilianp07/erdispatch/infra/redisq"
)

// EventsConfig lists the optional forwarders. A forwarder is enabled when its
// broker or address is set.
type EventsConfig struct {
	// BufferSize is the per-subscriber channel capacity of the bus.
	BufferSize int           `json:"buffer_size"`
	MQTT       mqtt.Config   `json:"mqtt"`
	Redis      redisq.Config `json:"redis"`
}

func (c *EventsConfig) SetDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
}

func (c EventsConfig) Validate() error {
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range", c.MQTT.QoS)
	}
	if c.MQTT.UseTLS && c.MQTT.Broker != "" && (c.MQTT.ClientCert == "" || c.MQTT.ClientKey == "" || c.MQTT.CABundle == "") {
		return fmt.Errorf("mqtt tls requires client_cert, client_key and ca_bundle")
	}
	if c.Redis.MaxLen < 0 {
		return fmt.Errorf("redis max_len must be positive")
	}
	return nil
}
