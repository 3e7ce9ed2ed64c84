package events

import (
	"context"
	"strings"

	"github.com/kilianp07/erdispatch/core/logger"
)

// Forwarder ships events to an external transport (MQTT, Redis...).
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, ev Event) error
	Close() error
}

// Topic returns the lower-case transport suffix of t, for instance
// "new_emergency_response".
func (t Type) Topic() string { return strings.ToLower(string(t)) }

// Pump delivers every event read from sub to f until sub is closed or ctx is
// done. Forwarding errors are logged and the event is dropped.
func Pump(ctx context.Context, sub <-chan Event, f Forwarder, log logger.Logger) {
	log = logger.OrNop(log)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := f.Forward(ctx, ev); err != nil {
				log.Warnf("%s: forward %s: %v", f.Name(), ev.Type, err)
			}
		}
	}
}
