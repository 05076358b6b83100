package model

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingEnroute   BookingStatus = "ENROUTE"
	BookingCollected BookingStatus = "COLLECTED"
	BookingInTransit BookingStatus = "IN_TRANSIT"
	BookingDelivered BookingStatus = "DELIVERED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// BookingStatuses lists every recognised booking status.
var BookingStatuses = []BookingStatus{
	BookingBooked, BookingEnroute, BookingCollected, BookingInTransit, BookingDelivered, BookingCancelled,
}

// ParseBookingStatus validates s against BookingStatuses.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	for _, st := range BookingStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ShipmentStatus returns the shipment status mirrored by a terminal booking
// status, if any.
func (s BookingStatus) ShipmentStatus() (ShipmentStatus, bool) {
	switch s {
	case BookingDelivered:
		return ShipmentDelivered, true
	case BookingCancelled:
		return ShipmentCancelled, true
	}
	return "", false
}

// Booking is the contract created when a quote is accepted.
type Booking struct {
	ID                 string        `json:"id"`
	ShipmentID         string        `json:"shipmentId"`
	QuoteID            string        `json:"quoteId"`
	TransporterCompany string        `json:"transporterCompany"`
	Price              float64       `json:"price"`
	Status             BookingStatus `json:"status"`
	ThreadID           string        `json:"threadId"`
	Paid               bool          `json:"paid"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Thread is the message channel of one booking.
type Thread struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SenderSystem is the role of automated thread messages.
const SenderSystem = "system"

// Message is an entry of a booking thread.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	SenderRole string    `json:"senderRole"`
	SenderID   string    `json:"senderId,omitempty"`
	Text       string    `json:"text"`
	TS         time.Time `json:"ts"`
}

// WelcomeText is the first message of every booking thread.
func WelcomeText(shipmentID string) string {
	return fmt.Sprintf("Booking created for shipment %s. Use this thread to coordinate.", shipmentID)
}

// StatusText announces a booking status change in its thread.
func StatusText(s BookingStatus) string {
	return fmt.Sprintf("Status updated to %s", s)
}
