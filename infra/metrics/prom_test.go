package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordShipmentPosted(coremetrics.ShipmentEvent{ShipmentID: "load-0001", Service: "pallet", CrossBorder: true}))
	require.NoError(t, s.RecordShipmentPosted(coremetrics.ShipmentEvent{ShipmentID: "load-0002"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.shipments.WithLabelValues("pallet", "true", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.shipments.WithLabelValues("unspecified", "false", "false")))

	require.NoError(t, s.RecordQuoteSubmitted(coremetrics.QuoteEvent{Price: 950}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.quotes))

	require.NoError(t, s.RecordBooking(coremetrics.BookingEvent{Status: "BOOKED", Created: true}))
	require.NoError(t, s.RecordBooking(coremetrics.BookingEvent{Status: "BOOKED", Paid: true}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.bookings.WithLabelValues("BOOKED", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.bookings.WithLabelValues("BOOKED", "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.payments))

	require.NoError(t, s.RecordAcceptance(coremetrics.AcceptanceEvent{Rejected: 2, Duration: time.Millisecond}))
	require.NoError(t, s.RecordAcceptance(coremetrics.AcceptanceEvent{Conflict: true}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.acceptances.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.acceptances.WithLabelValues("conflict")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.rejected))

	require.NoError(t, s.RecordDelivery(coremetrics.DeliveryEvent{Sink: "sse", Event: "shipment:new"}))
	require.NoError(t, s.RecordDelivery(coremetrics.DeliveryEvent{Sink: "kafka", Event: "shipment:new", Err: errors.New("full")}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.deliveries.WithLabelValues("sse", "shipment:new", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.deliveries.WithLabelValues("kafka", "shipment:new", "dropped")))

	require.NoError(t, s.RecordSubscribers("websocket", 3))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.subscribers.WithLabelValues("websocket")))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, a.RecordQuoteSubmitted(coremetrics.QuoteEvent{Price: 10}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.quotes))
}

func TestRegistryTypes(t *testing.T) {
	s, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)
}
