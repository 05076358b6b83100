package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes marketplace events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

var _ coremetrics.AcceptanceRecorder = (*InfluxSink)(nil)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordShipmentPosted writes a shipment_posted point.
func (s *InfluxSink) RecordShipmentPosted(ev coremetrics.ShipmentEvent) error {
	p := write.NewPointWithMeasurement("shipment_posted").
		AddTag("shipment_id", ev.ShipmentID).
		AddTag("cross_border", strconv.FormatBool(ev.CrossBorder)).
		AddTag("adr", strconv.FormatBool(ev.Hazardous))
	if ev.Service != "" {
		p = p.AddTag("service", ev.Service)
	}
	p = p.AddField("count", 1).SetTime(ev.Time)
	return s.write(p)
}

// RecordQuoteSubmitted writes a quote_submitted point.
func (s *InfluxSink) RecordQuoteSubmitted(ev coremetrics.QuoteEvent) error {
	p := write.NewPointWithMeasurement("quote_submitted").
		AddTag("shipment_id", ev.ShipmentID).
		AddTag("quote_id", ev.QuoteID).
		AddField("price", round3(ev.Price)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordBooking writes a booking_event point.
func (s *InfluxSink) RecordBooking(ev coremetrics.BookingEvent) error {
	kind := "updated"
	if ev.Created {
		kind = "created"
	}
	p := write.NewPointWithMeasurement("booking_event").
		AddTag("booking_id", ev.BookingID).
		AddTag("shipment_id", ev.ShipmentID).
		AddTag("status", ev.Status).
		AddTag("kind", kind).
		AddField("price", round3(ev.Price)).
		AddField("paid", ev.Paid).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordAcceptance writes a quote_acceptance point.
func (s *InfluxSink) RecordAcceptance(ev coremetrics.AcceptanceEvent) error {
	p := write.NewPointWithMeasurement("quote_acceptance").
		AddTag("shipment_id", ev.ShipmentID).
		AddTag("quote_id", ev.QuoteID).
		AddTag("conflict", strconv.FormatBool(ev.Conflict)).
		AddField("rejected", ev.Rejected).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(time.Now())
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
