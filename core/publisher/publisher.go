// Package publisher decouples marketplace mutations from real-time subscribers.
//
// Mutation code talks to the Publisher interface only. Hub implements it over
// pluggable Sinks: room based push transports (WebSocket, MQTT) receive public
// and private room events, stream transports (SSE, Kafka, AMQP) receive public
// events only. Delivery is best effort and never blocks or fails the caller.
package publisher

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/logger"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/internal/eventbus"
)

// Publisher emits domain events to subscribers.
type Publisher interface {
	// EmitPublic notifies the public room and every open stream.
	EmitPublic(name string, payload any)
	// EmitToUsers notifies the private rooms of userIDs on room based sinks only.
	EmitToUsers(userIDs []string, name string, payload any)
}

// Scope selects which events a sink receives.
type Scope int

const (
	// ScopeRooms sinks receive public events and private room events.
	ScopeRooms Scope = iota
	// ScopePublic sinks receive public events only.
	ScopePublic
)

func (s Scope) String() string {
	if s == ScopePublic {
		return "public"
	}
	return "rooms"
}

// Sink is one real-time transport. Deliver must not block.
type Sink interface {
	Name() string
	Scope() Scope
	Deliver(ev events.Event) error
}

// Hub fans events out to the registered sinks and to an in-process tap.
type Hub struct {
	mu    sync.RWMutex
	sinks []Sink
	tap   *eventbus.TypedBus[events.Event]
	log   logger.Logger
	rec   coremetrics.DeliveryRecorder
}

var _ Publisher = (*Hub)(nil)

// Option configures a Hub.
type Option func(*Hub)

// WithDeliveryRecorder records the outcome of every sink delivery.
func WithDeliveryRecorder(r coremetrics.DeliveryRecorder) Option {
	return func(h *Hub) { h.rec = r }
}

// NewHub returns a Hub without sinks.
func NewHub(log logger.Logger, opts ...Option) *Hub {
	h := &Hub{tap: eventbus.NewTypedWithBuffer[events.Event](64), log: log}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds sinks to the hub.
func (h *Hub) Register(sinks ...Sink) {
	h.mu.Lock()
	h.sinks = append(h.sinks, sinks...)
	h.mu.Unlock()
	for _, s := range sinks {
		h.log.Infof("realtime sink %s registered (%s)", s.Name(), s.Scope())
	}
}

// Sinks returns the registered sinks.
func (h *Hub) Sinks() []Sink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Sink(nil), h.sinks...)
}

// Tap exposes every dispatched event to in-process consumers such as the
// metrics collector.
func (h *Hub) Tap() *eventbus.TypedBus[events.Event] { return h.tap }

// EmitPublic implements Publisher.
func (h *Hub) EmitPublic(name string, payload any) {
	h.Dispatch(events.Public(name, payload))
}

// EmitToUsers implements Publisher.
func (h *Hub) EmitToUsers(userIDs []string, name string, payload any) {
	ev := events.ForUsers(userIDs, name, payload)
	if len(ev.Rooms) == 0 {
		return
	}
	h.Dispatch(ev)
}

// Dispatch hands ev to every sink whose scope accepts it.
func (h *Hub) Dispatch(ev events.Event) {
	h.mu.RLock()
	sinks := h.sinks
	h.mu.RUnlock()
	for _, s := range sinks {
		if !ev.Public && s.Scope() == ScopePublic {
			continue
		}
		err := deliver(s, ev)
		if err != nil {
			h.log.Warnf("realtime sink %s dropped %s: %v", s.Name(), ev.Name, err)
		}
		if h.rec != nil {
			_ = h.rec.RecordDelivery(coremetrics.DeliveryEvent{Sink: s.Name(), Event: ev.Name, Err: err})
		}
	}
	h.tap.Publish(ev)
}

func deliver(s Sink, ev events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher: sink %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Deliver(ev)
}

// Close closes every sink implementing io.Closer and the tap.
func (h *Hub) Close() error {
	h.mu.Lock()
	sinks := h.sinks
	h.sinks = nil
	h.mu.Unlock()
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("publisher: close %s: %w", s.Name(), err))
			}
		}
	}
	h.tap.Close()
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) EmitPublic(string, any)             {}
func (Nop) EmitToUsers([]string, string, any) {}
