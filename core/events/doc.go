// Package events defines the domain events fanned out to real-time subscribers.
//
// Available event names:
//   - shipment:new: a shipment was posted
//   - quote:new: a quote was submitted
//   - booking:new: a quote was accepted and a booking created
//   - booking:update: a booking changed status or was paid
//   - dm:message: a direct message was sent (user rooms only)
package events
