package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/freightmarket/core/events"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/model"
	"github.com/kilianp07/freightmarket/internal/eventbus"
)

// RunEventCollector records metrics for every marketplace event published on
// bus. It blocks until ctx is canceled or the bus is closed.
func RunEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) error {
	if bus == nil || sink == nil {
		return nil
	}
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			_ = record(sink, ev)
		}
	}
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	switch p := ev.Payload.(type) {
	case model.Shipment:
		if ev.Name == events.ShipmentNew {
			return sink.RecordShipmentPosted(coremetrics.ShipmentEvent{
				ShipmentID:  p.ID,
				Service:     p.Service,
				CrossBorder: p.CrossBorder,
				Hazardous:   p.Hazardous,
				Time:        ts,
			})
		}
	case model.Quote:
		if ev.Name == events.QuoteNew {
			return sink.RecordQuoteSubmitted(coremetrics.QuoteEvent{
				QuoteID:    p.ID,
				ShipmentID: p.ShipmentID,
				Price:      p.Price,
				Time:       ts,
			})
		}
	case model.BookingView:
		if ev.Name == events.BookingNew || ev.Name == events.BookingUpdate {
			return sink.RecordBooking(coremetrics.BookingEvent{
				BookingID:  p.ID,
				ShipmentID: p.ShipmentID,
				Status:     string(p.Status),
				Price:      p.Price,
				Paid:       p.Paid,
				Created:    ev.Name == events.BookingNew,
				Time:       ts,
			})
		}
	}
	return nil
}
