package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/logger"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/internal/eventbus"
)

// StreamConfig tunes the SSE transport.
type StreamConfig struct {
	KeepAliveSec int `json:"keep_alive_sec"`
	Buffer       int `json:"buffer"`
}

// SetDefaults applies sane defaults.
func (c *StreamConfig) SetDefaults() {
	if c.KeepAliveSec <= 0 {
		c.KeepAliveSec = 15
	}
	if c.Buffer <= 0 {
		c.Buffer = 16
	}
}

// Validate checks the settings.
func (c StreamConfig) Validate() error {
	if c.KeepAliveSec < 0 {
		return fmt.Errorf("stream: keep_alive_sec must not be negative")
	}
	return nil
}

// StreamHub serves public events as Server-Sent Events. An event without a
// name on the bus is a keep-alive tick.
type StreamHub struct {
	cfg StreamConfig
	bus *eventbus.TypedBus[events.Event]
	log logger.Logger
	rec coremetrics.SubscriberRecorder
}

var _ publisher.Sink = (*StreamHub)(nil)

// NewStreamHub creates a StreamHub. cfg must have its defaults applied; rec may be nil.
func NewStreamHub(cfg StreamConfig, rec coremetrics.SubscriberRecorder, log logger.Logger) *StreamHub {
	return &StreamHub{
		cfg: cfg,
		bus: eventbus.NewTypedWithBuffer[events.Event](cfg.Buffer),
		log: log,
		rec: rec,
	}
}

func (s *StreamHub) Name() string            { return "sse" }
func (s *StreamHub) Scope() publisher.Scope { return publisher.ScopePublic }

// Subscribers returns the number of open streams.
func (s *StreamHub) Subscribers() int { return s.bus.Len() }

// Deliver implements publisher.Sink.
func (s *StreamHub) Deliver(ev events.Event) error {
	s.bus.Publish(ev)
	return nil
}

func (s *StreamHub) keepAlive() { s.bus.Publish(events.Event{}) }

// Run schedules the keep-alive comments until ctx is done.
func (s *StreamHub) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", s.cfg.KeepAliveSec), s.keepAlive); err != nil {
		return fmt.Errorf("stream: schedule keep-alive: %w", err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Close ends every open stream.
func (s *StreamHub) Close() error {
	s.bus.Close()
	return nil
}

func (s *StreamHub) recordSubscribers() {
	if s.rec != nil {
		_ = s.rec.RecordSubscribers(s.Name(), s.bus.Len())
	}
}

// ServeHTTP streams events until the client disconnects.
func (s *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := s.bus.Subscribe()
	s.recordSubscribers()
	defer func() {
		s.bus.Unsubscribe(sub)
		s.recordSubscribers()
	}()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				s.log.Debugf("sse write: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	if ev.Name == "" {
		_, err := fmt.Fprint(w, ": keep-alive\n\n")
		return err
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
