package mqtt

import "errors"

var (
	// ErrPublish is returned when an event cannot be published after retries.
	ErrPublish = errors.New("mqtt publish failed")
	// ErrUnknownAction is returned for control commands other than start or stop.
	ErrUnknownAction = errors.New("unknown control action")
)
