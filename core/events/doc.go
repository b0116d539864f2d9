// Package events defines the admission events emitted on the event bus.
//
// Available event types:
//   - RedirectEvent: a vehicle was sent to another facility
//   - DepartureEvent: a vehicle left a facility
//   - EvictionEvent: an overstaying vehicle lost its reservation
package events
