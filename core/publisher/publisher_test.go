package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/factory"
	coremetrics "github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/core/monitoring"
	"github.com/kilianp07/freightmarket/infra/logger"
)

type recordingSink struct {
	name  string
	scope Scope
	err   error
	panic bool

	mu     sync.Mutex
	events []events.Event
	closed bool
}

func (s *recordingSink) Name() string { return s.name }
func (s *recordingSink) Scope() Scope { return s.scope }

func (s *recordingSink) Deliver(ev events.Event) error {
	if s.panic {
		panic("boom")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Name)
	}
	return out
}

type deliveryRecorder struct {
	mu  sync.Mutex
	got []coremetrics.DeliveryEvent
}

func (r *deliveryRecorder) RecordDelivery(e coremetrics.DeliveryEvent) error {
	r.mu.Lock()
	r.got = append(r.got, e)
	r.mu.Unlock()
	return nil
}

func TestHubScopes(t *testing.T) {
	rooms := &recordingSink{name: "ws", scope: ScopeRooms}
	stream := &recordingSink{name: "sse", scope: ScopePublic}
	h := NewHub(logger.NopLogger{})
	h.Register(rooms, stream)

	h.EmitPublic(events.ShipmentNew, map[string]string{"id": "load-0001"})
	h.EmitToUsers([]string{"user-0002", "user-0003"}, events.DMMessage, nil)

	assert.Equal(t, []string{events.ShipmentNew, events.DMMessage}, rooms.names())
	assert.Equal(t, []string{events.ShipmentNew}, stream.names())
	assert.Equal(t, []string{"user:user-0002", "user:user-0003"}, rooms.events[1].Rooms)
}

func TestHubEmitToNobody(t *testing.T) {
	rooms := &recordingSink{name: "ws", scope: ScopeRooms}
	h := NewHub(logger.NopLogger{})
	h.Register(rooms)

	h.EmitToUsers(nil, events.DMMessage, nil)
	h.EmitToUsers([]string{""}, events.DMMessage, nil)
	assert.Empty(t, rooms.names())
}

func TestHubSinkFailuresAreIsolated(t *testing.T) {
	broken := &recordingSink{name: "broken", scope: ScopeRooms, panic: true}
	failing := &recordingSink{name: "failing", scope: ScopeRooms, err: errors.New("down")}
	healthy := &recordingSink{name: "healthy", scope: ScopeRooms}
	rec := &deliveryRecorder{}
	h := NewHub(logger.NopLogger{}, WithDeliveryRecorder(rec))
	h.Register(broken, failing, healthy)

	assert.NotPanics(t, func() { h.EmitPublic(events.QuoteNew, nil) })
	assert.Equal(t, []string{events.QuoteNew}, healthy.names())

	require.Len(t, rec.got, 3)
	assert.Equal(t, "broken", rec.got[0].Sink)
	assert.ErrorContains(t, rec.got[0].Err, "panicked")
	assert.EqualError(t, rec.got[1].Err, "down")
	assert.NoError(t, rec.got[2].Err)
}

func TestHubTapAndClose(t *testing.T) {
	s := &recordingSink{name: "ws", scope: ScopeRooms}
	h := NewHub(logger.NopLogger{})
	h.Register(s)
	ch := h.Tap().Subscribe()

	h.EmitPublic(events.BookingNew, nil)
	select {
	case ev := <-ch:
		assert.Equal(t, events.BookingNew, ev.Name)
	case <-time.After(time.Second):
		t.Fatal("tap did not receive event")
	}

	require.NoError(t, h.Close())
	assert.True(t, s.closed)
	assert.Empty(t, h.Sinks())
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	block   chan struct{}
	panicOn string
	closed  bool
}

func (f *fakeSender) Send(_ context.Context, ev events.Event) error {
	if f.block != nil {
		<-f.block
	}
	if ev.Name == f.panicOn {
		panic("broker client bug")
	}
	f.mu.Lock()
	f.sent = append(f.sent, ev.Name)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestAsyncSinkDrainsOnClose(t *testing.T) {
	snd := &fakeSender{}
	a := NewAsyncSink("kafka", ScopePublic, snd, 8, time.Second, logger.NopLogger{})
	assert.Equal(t, "kafka", a.Name())
	assert.Equal(t, ScopePublic, a.Scope())

	require.NoError(t, a.Deliver(events.Public(events.ShipmentNew, nil)))
	require.NoError(t, a.Deliver(events.Public(events.QuoteNew, nil)))
	require.NoError(t, a.Close())

	assert.Equal(t, []string{events.ShipmentNew, events.QuoteNew}, snd.sent)
	assert.True(t, snd.closed)
	assert.ErrorIs(t, a.Deliver(events.Public(events.BookingNew, nil)), ErrClosed)
	assert.NoError(t, a.Close())
}

func TestAsyncSinkQueueFull(t *testing.T) {
	snd := &fakeSender{block: make(chan struct{})}
	a := NewAsyncSink("amqp", ScopePublic, snd, 1, time.Second, logger.NopLogger{})

	var full bool
	for i := 0; i < 4; i++ {
		if err := a.Deliver(events.Public(events.ShipmentNew, nil)); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
	close(snd.block)
	require.NoError(t, a.Close())
}

type stubSink struct{ recordingSink }

func TestNewSinksFromRegistry(t *testing.T) {
	require.NoError(t, RegisterSink("stub-test", func(map[string]any) (Sink, error) {
		return &stubSink{recordingSink{name: "stub", scope: ScopePublic}}, nil
	}))

	sinks, err := NewSinks(nil)
	require.NoError(t, err)
	assert.Empty(t, sinks)

	cfg := Config{Sinks: []factory.ModuleConfig{{Type: "stub-test"}}}
	require.NoError(t, cfg.Validate())
	sinks, err = NewSinks(cfg.Sinks)
	require.NoError(t, err)
	require.Len(t, sinks, 1)

	_, err = NewSinks([]factory.ModuleConfig{{Type: "stub-test"}, {Type: "missing"}})
	assert.ErrorContains(t, err, "unknown module type")
	assert.Error(t, Config{Sinks: []factory.ModuleConfig{{}}}.Validate())
}

type panicMonitor struct {
	mu   sync.Mutex
	tags []map[string]string
}

func (m *panicMonitor) CaptureException(error, map[string]string) {}
func (m *panicMonitor) CapturePanic(_ any, tags map[string]string) {
	m.mu.Lock()
	m.tags = append(m.tags, tags)
	m.mu.Unlock()
}
func (m *panicMonitor) Flush(time.Duration) {}

func TestAsyncSinkSurvivesSenderPanic(t *testing.T) {
	mon := &panicMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })

	snd := &fakeSender{panicOn: events.QuoteNew}
	a := NewAsyncSink("mqtt", ScopeRooms, snd, 8, time.Second, logger.NopLogger{})
	require.NoError(t, a.Deliver(events.Public(events.QuoteNew, nil)))
	require.NoError(t, a.Deliver(events.Public(events.BookingNew, nil)))
	require.NoError(t, a.Close())

	assert.Equal(t, []string{events.BookingNew}, snd.sent)
	require.Len(t, mon.tags, 1)
	assert.Equal(t, "mqtt", mon.tags[0]["sink"])
	assert.Equal(t, events.QuoteNew, mon.tags[0]["event"])
}
