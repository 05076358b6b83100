package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordShipmentPosted(ev ShipmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordShipmentPosted(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordQuoteSubmitted(ev QuoteEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordQuoteSubmitted(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordBooking(ev BookingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordBooking(ev))
	}
	return errors.Join(errs...)
}

// RecordAcceptance forwards to sinks implementing AcceptanceRecorder.
func (m *MultiSink) RecordAcceptance(ev AcceptanceEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(AcceptanceRecorder); ok {
			errs = append(errs, r.RecordAcceptance(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordDelivery forwards to sinks implementing DeliveryRecorder.
func (m *MultiSink) RecordDelivery(ev DeliveryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DeliveryRecorder); ok {
			errs = append(errs, r.RecordDelivery(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordSubscribers forwards to sinks implementing SubscriberRecorder.
func (m *MultiSink) RecordSubscribers(transport string, n int) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SubscriberRecorder); ok {
			errs = append(errs, r.RecordSubscribers(transport, n))
		}
	}
	return errors.Join(errs...)
}
