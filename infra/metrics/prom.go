package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records marketplace activity in Prometheus metrics.
type PromSink struct {
	shipments   *prometheus.CounterVec
	quotes      prometheus.Counter
	quotePrice  prometheus.Histogram
	bookings    *prometheus.CounterVec
	payments    prometheus.Counter
	acceptances *prometheus.CounterVec
	rejected    prometheus.Counter
	acceptTime  prometheus.Histogram
	deliveries  *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
}

var (
	_ coremetrics.AcceptanceRecorder = (*PromSink)(nil)
	_ coremetrics.DeliveryRecorder   = (*PromSink)(nil)
	_ coremetrics.SubscriberRecorder = (*PromSink)(nil)
)

// NewPromSink registers the marketplace metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		shipments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_shipments_posted_total",
			Help: "Shipments posted by shippers",
		}, []string{"service", "cross_border", "adr"}),
		quotes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_quotes_submitted_total",
			Help: "Quotes submitted by transporters",
		}),
		quotePrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketplace_quote_price",
			Help:    "Distribution of submitted quote prices",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_booking_events_total",
			Help: "Booking creations and status updates",
		}, []string{"status", "kind"}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_bookings_paid_total",
			Help: "Booking updates carrying a captured payment",
		}),
		acceptances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_quote_acceptances_total",
			Help: "Quote acceptance attempts by outcome",
		}, []string{"outcome"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_quotes_rejected_total",
			Help: "Competing quotes rejected by acceptances",
		}),
		acceptTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketplace_quote_acceptance_seconds",
			Help:    "Time spent inside the acceptance critical section",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_deliveries_total",
			Help: "Events handed to real-time sinks",
		}, []string{"sink", "event", "result"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Connected real-time subscribers",
		}, []string{"transport"}),
	}
	var err error
	if s.shipments, err = register(reg, s.shipments); err != nil {
		return nil, err
	}
	if s.quotes, err = register(reg, s.quotes); err != nil {
		return nil, err
	}
	if s.quotePrice, err = register(reg, s.quotePrice); err != nil {
		return nil, err
	}
	if s.bookings, err = register(reg, s.bookings); err != nil {
		return nil, err
	}
	if s.payments, err = register(reg, s.payments); err != nil {
		return nil, err
	}
	if s.acceptances, err = register(reg, s.acceptances); err != nil {
		return nil, err
	}
	if s.rejected, err = register(reg, s.rejected); err != nil {
		return nil, err
	}
	if s.acceptTime, err = register(reg, s.acceptTime); err != nil {
		return nil, err
	}
	if s.deliveries, err = register(reg, s.deliveries); err != nil {
		return nil, err
	}
	if s.subscribers, err = register(reg, s.subscribers); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordShipmentPosted increments the posted shipments counter.
func (s *PromSink) RecordShipmentPosted(ev coremetrics.ShipmentEvent) error {
	service := ev.Service
	if service == "" {
		service = "unspecified"
	}
	s.shipments.WithLabelValues(service, strconv.FormatBool(ev.CrossBorder), strconv.FormatBool(ev.Hazardous)).Inc()
	return nil
}

// RecordQuoteSubmitted counts the quote and observes its price.
func (s *PromSink) RecordQuoteSubmitted(ev coremetrics.QuoteEvent) error {
	s.quotes.Inc()
	s.quotePrice.Observe(ev.Price)
	return nil
}

// RecordBooking counts booking creations and updates by status.
func (s *PromSink) RecordBooking(ev coremetrics.BookingEvent) error {
	kind := "updated"
	if ev.Created {
		kind = "created"
	}
	s.bookings.WithLabelValues(ev.Status, kind).Inc()
	if ev.Paid && !ev.Created {
		s.payments.Inc()
	}
	return nil
}

// RecordAcceptance counts acceptance outcomes and observes their duration.
func (s *PromSink) RecordAcceptance(ev coremetrics.AcceptanceEvent) error {
	outcome := "accepted"
	if ev.Conflict {
		outcome = "conflict"
	}
	s.acceptances.WithLabelValues(outcome).Inc()
	s.rejected.Add(float64(ev.Rejected))
	s.acceptTime.Observe(ev.Duration.Seconds())
	return nil
}

// RecordDelivery counts real-time deliveries by sink and result.
func (s *PromSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	result := "ok"
	if ev.Err != nil {
		result = "dropped"
	}
	s.deliveries.WithLabelValues(ev.Sink, ev.Event, result).Inc()
	return nil
}

// RecordSubscribers sets the subscriber gauge of a transport.
func (s *PromSink) RecordSubscribers(transport string, n int) error {
	s.subscribers.WithLabelValues(transport).Set(float64(n))
	return nil
}
