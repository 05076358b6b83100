package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/factory"
	"github.com/kilianp07/freightmarket/core/publisher"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []skafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestProducerSend(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)
	ev := events.Public(events.QuoteNew, map[string]any{"id": "quo-0001", "price": 950})
	require.NoError(t, p.Send(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "quote:new", string(w.msgs[0].Key))
	assert.Equal(t, "event", w.msgs[0].Headers[0].Key)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "quote:new", body["event"])
	assert.Equal(t, "quo-0001", body["payload"].(map[string]any)["id"])

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.Send(context.Background(), ev), "broker down")
}

func TestSinkDrainsOnClose(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(NewProducerWithWriter(w), 8)
	assert.Equal(t, publisher.ScopePublic, s.Scope())
	assert.Equal(t, "kafka", s.Name())
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Deliver(events.Public(events.ShipmentNew, i)))
	}
	require.NoError(t, s.Close())
	assert.Len(t, w.msgs, 5)
	assert.True(t, w.closed)
}

func TestRegistry(t *testing.T) {
	_, err := publisher.NewSinks([]factory.ModuleConfig{{Type: "kafka", Conf: map[string]any{"topic": "t"}}})
	assert.ErrorContains(t, err, "brokers are required")

	sinks, err := publisher.NewSinks([]factory.ModuleConfig{{Type: "kafka", Conf: map[string]any{
		"brokers": []string{"localhost:9092"}, "topic": "marketplace",
	}}})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	require.NoError(t, sinks[0].(*publisher.AsyncSink).Close())
}
