package mqtt

import "context"

// Command is a remote control instruction received on the control topic.
type Command struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
}

// Control actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// CommandHandler reacts to a remote command.
type CommandHandler func(ctx context.Context, cmd Command) error
