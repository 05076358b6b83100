package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/factory"
)

type recordSink struct {
	NopSink
	count int
	fail  bool
}

func (r *recordSink) RecordShipmentPosted(ShipmentEvent) error {
	r.count++
	if r.fail {
		return errors.New("down")
	}
	return nil
}

func (r *recordSink) RecordDelivery(DeliveryEvent) error {
	r.count++
	return nil
}

type basicSink struct{ calls int }

func (b *basicSink) RecordShipmentPosted(ShipmentEvent) error { b.calls++; return nil }
func (b *basicSink) RecordQuoteSubmitted(QuoteEvent) error    { b.calls++; return nil }
func (b *basicSink) RecordBooking(BookingEvent) error         { b.calls++; return nil }

func TestMultiSinkForwardsToAll(t *testing.T) {
	s1 := &recordSink{fail: true}
	s2 := &recordSink{}
	basic := &basicSink{}
	m := NewMultiSink(s1, s2, basic)

	err := m.RecordShipmentPosted(ShipmentEvent{ShipmentID: "load-0001"})
	assert.Error(t, err)
	assert.Equal(t, 1, s2.count, "later sinks still receive the record")
	assert.Equal(t, 1, basic.calls)

	require.NoError(t, m.RecordDelivery(DeliveryEvent{Sink: "sse", Event: "shipment:new"}))
	assert.Equal(t, 2, s1.count)
	assert.Equal(t, 1, basic.calls, "optional recorders are skipped when unsupported")
}

func TestNewMetricsSink(t *testing.T) {
	_ = RegisterMetricsSink("test-nop", func(map[string]any) (MetricsSink, error) { return NopSink{}, nil })

	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-nop"}, {Type: "test-nop"}})
	require.NoError(t, err)
	m, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Sinks: []factory.ModuleConfig{{}}}.Validate())
}
