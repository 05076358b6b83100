package metrics

import "time"

// ShipmentEvent records a posted shipment.
type ShipmentEvent struct {
	ShipmentID  string
	Service     string
	CrossBorder bool
	Hazardous   bool
	Time        time.Time
}

// QuoteEvent records a submitted quote.
type QuoteEvent struct {
	QuoteID    string
	ShipmentID string
	Price      float64
	Time       time.Time
}

// BookingEvent records a booking creation or update.
type BookingEvent struct {
	BookingID  string
	ShipmentID string
	Status     string
	Price      float64
	Paid       bool
	Created    bool
	Time       time.Time
}

// MetricsSink records marketplace activity.
type MetricsSink interface {
	RecordShipmentPosted(ev ShipmentEvent) error
	RecordQuoteSubmitted(ev QuoteEvent) error
	RecordBooking(ev BookingEvent) error
}

// AcceptanceEvent captures one quote acceptance attempt.
type AcceptanceEvent struct {
	ShipmentID string
	QuoteID    string
	Rejected   int
	Conflict   bool
	Duration   time.Duration
}

// AcceptanceRecorder records quote acceptance outcomes.
type AcceptanceRecorder interface {
	RecordAcceptance(ev AcceptanceEvent) error
}

// DeliveryEvent captures the outcome of handing an event to a real-time sink.
type DeliveryEvent struct {
	Sink  string
	Event string
	Err   error
}

// DeliveryRecorder records real-time delivery outcomes.
type DeliveryRecorder interface {
	RecordDelivery(ev DeliveryEvent) error
}

// SubscriberRecorder records the number of connected real-time subscribers.
type SubscriberRecorder interface {
	RecordSubscribers(transport string, n int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordShipmentPosted(ShipmentEvent) error   { return nil }
func (NopSink) RecordQuoteSubmitted(QuoteEvent) error      { return nil }
func (NopSink) RecordBooking(BookingEvent) error           { return nil }
func (NopSink) RecordAcceptance(AcceptanceEvent) error     { return nil }
func (NopSink) RecordDelivery(DeliveryEvent) error         { return nil }
func (NopSink) RecordSubscribers(string, int) error        { return nil }
