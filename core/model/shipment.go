package model

import "time"

// ShipmentStatus is the headline state of a posted load.
type ShipmentStatus string

const (
	ShipmentOpen      ShipmentStatus = "OPEN"
	ShipmentBooked    ShipmentStatus = "BOOKED"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

// ParseShipmentStatus validates s against the known shipment statuses.
func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	switch st := ShipmentStatus(s); st {
	case ShipmentOpen, ShipmentBooked, ShipmentDelivered, ShipmentCancelled:
		return st, true
	}
	return "", false
}

// CanTransition reports whether a shipment may move from s to next.
// Shipments only move forward: OPEN to BOOKED, then BOOKED to a terminal state.
func (s ShipmentStatus) CanTransition(next ShipmentStatus) bool {
	switch s {
	case ShipmentOpen:
		return next == ShipmentBooked
	case ShipmentBooked:
		return next == ShipmentDelivered || next == ShipmentCancelled
	}
	return false
}

// ReadyDateLayout is the calendar format of Shipment.ReadyDate.
const ReadyDateLayout = "2006-01-02"

// Shipment is a load posted by a shipper.
type Shipment struct {
	ID          string         `json:"id" yaml:"-"`
	Title       string         `json:"title" yaml:"title"`
	Pickup      string         `json:"pickup" yaml:"pickup"`
	Dropoff     string         `json:"dropoff" yaml:"dropoff"`
	ReadyDate   string         `json:"readyDate" yaml:"readyDate"`
	WeightKg    float64        `json:"weightKg" yaml:"weightKg"`
	VolumeM3    float64        `json:"volumeM3" yaml:"volumeM3"`
	CrossBorder bool           `json:"crossBorder" yaml:"crossBorder"`
	Service     string         `json:"service" yaml:"service"`
	Hazardous   bool           `json:"adr" yaml:"adr"`
	Notes       string         `json:"notes" yaml:"notes"`
	Status      ShipmentStatus `json:"status" yaml:"status"`
	Hidden      bool           `json:"hidden" yaml:"hidden"`
	OwnerID     string         `json:"ownerId,omitempty" yaml:"-"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"-"`
}

// Flag marks a shipment for moderation.
type Flag struct {
	ID         string    `json:"id"`
	ShipmentID string    `json:"shipmentId"`
	Reason     string    `json:"reason"`
	Reporter   string    `json:"reporter"`
	Hidden     bool      `json:"hidden"`
	CreatedAt  time.Time `json:"createdAt"`
}
