package events

import (
	"time"

	"github.com/kilianp07/erdispatch/core/model"
)

// Type identifies the kind of notification.
type Type string

const (
	TypeEmergencyResponse Type = "NEW_EMERGENCY_RESPONSE"
	TypeVehicleUpdate     Type = "VEHICLE_UPDATE"
	TypeSystemStatus      Type = "SYSTEM_STATUS"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type    Type      `json:"type"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Publisher accepts events. eventbus.TypedBus[Event] satisfies it.
type Publisher interface {
	Publish(Event)
}

// SystemState is the lifecycle of the autonomous loop.
type SystemState string

const (
	StateRunning SystemState = "Running"
	StateStopped SystemState = "Stopped"
)

// SystemStatus is the payload of SYSTEM_STATUS events.
type SystemStatus struct {
	State SystemState `json:"state"`
}

// EmergencyResponse is the payload of NEW_EMERGENCY_RESPONSE events.
type EmergencyResponse struct {
	Incident   model.Incident `json:"incident"`
	VehicleID  string         `json:"vehicle_id"`
	ETAMinutes int            `json:"eta_minutes"`
	Route      model.Geometry `json:"route"`
}

// VehicleUpdate is the payload of VEHICLE_UPDATE events.
type VehicleUpdate struct {
	Vehicle model.Vehicle `json:"vehicle"`
	From    model.Status  `json:"from"`
}

// NewSystemStatus builds a SYSTEM_STATUS event.
func NewSystemStatus(s SystemState, now time.Time) Event {
	return Event{Type: TypeSystemStatus, Payload: SystemStatus{State: s}, Time: now}
}

// NewEmergencyResponse builds a NEW_EMERGENCY_RESPONSE event from a result.
func NewEmergencyResponse(res model.DispatchResult) Event {
	return Event{
		Type: TypeEmergencyResponse,
		Payload: EmergencyResponse{
			Incident:   res.Incident,
			VehicleID:  res.Vehicle.ID,
			ETAMinutes: res.ETAMinutes(),
			Route:      res.Route.Geometry,
		},
		Time: res.Timestamp,
	}
}

// NewVehicleUpdate builds a VEHICLE_UPDATE event.
func NewVehicleUpdate(v model.Vehicle, from model.Status, now time.Time) Event {
	return Event{Type: TypeVehicleUpdate, Payload: VehicleUpdate{Vehicle: v, From: from}, Time: now}
}
