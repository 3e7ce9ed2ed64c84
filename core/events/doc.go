// Package events defines the notifications published to dashboard
// subscribers.
//
// Available event types:
//   - NEW_EMERGENCY_RESPONSE: a vehicle was dispatched to an incident
//   - VEHICLE_UPDATE: a vehicle changed status or location
//   - SYSTEM_STATUS: the autonomous loop started or stopped
package events
