// Package kafka streams public marketplace events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/factory"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/logger"
)

// Config selects the brokers and topic.
type Config struct {
	Brokers   []string `json:"brokers"`
	Topic     string   `json:"topic"`
	QueueSize int      `json:"queue_size"`
}

// Validate checks the settings.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka: topic is required")
	}
	return nil
}

// Writer is the subset of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Producer writes events keyed by event name. It implements publisher.Sender.
type Producer struct {
	writer Writer
}

// NewProducer creates a Producer backed by a kafka.Writer.
func NewProducer(cfg Config) *Producer {
	return NewProducerWithWriter(&skafka.Writer{
		Addr:         skafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &skafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	})
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// Send implements publisher.Sender.
func (p *Producer) Send(ctx context.Context, ev events.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := skafka.Message{
		Key:     []byte(ev.Name),
		Value:   b,
		Time:    ev.Time,
		Headers: []skafka.Header{{Key: "event", Value: []byte(ev.Name)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error { return p.writer.Close() }

// NewSink wraps a Producer in a non-blocking stream sink.
func NewSink(cfg Config) (*publisher.AsyncSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newSink(NewProducer(cfg), cfg.QueueSize), nil
}

func newSink(p *Producer, size int) *publisher.AsyncSink {
	return publisher.NewAsyncSink("kafka", publisher.ScopePublic, p, size, 10*time.Second, logger.New("kafka-sink"))
}

func init() {
	_ = publisher.RegisterSink("kafka", func(conf map[string]any) (publisher.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		// env overrides arrive as a single comma separated string
		if len(c.Brokers) == 1 && strings.Contains(c.Brokers[0], ",") {
			c.Brokers = strings.Split(c.Brokers[0], ",")
		}
		return NewSink(c)
	})
}
