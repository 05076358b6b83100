// Package amqp publishes public marketplace events to a durable RabbitMQ queue.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/factory"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/logger"
)

// Config selects the broker and queue.
type Config struct {
	URL       string `json:"url"`
	Queue     string `json:"queue"`
	QueueSize int    `json:"queue_size"`
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("amqp: url is required")
	}
	if c.Queue == "" {
		return fmt.Errorf("amqp: queue is required")
	}
	return nil
}

// Channel is the subset of amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a queue. It implements publisher.Sender.
type Publisher struct {
	ch    Channel
	conn  interface{ Close() error }
	queue string
}

// Dial connects to the broker and declares the queue.
func Dial(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	p, err := NewPublisherWithChannel(ch, cfg.Queue)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisherWithChannel declares the durable queue on ch.
func NewPublisherWithChannel(ch Channel, queue string) (*Publisher, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqp: declare %s: %w", queue, err)
	}
	return &Publisher{ch: ch, queue: queue}, nil
}

// Send implements publisher.Sender.
func (p *Publisher) Send(ctx context.Context, ev events.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Name,
		Timestamp:    ev.Time,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	errs := []error{p.ch.Close()}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// NewSink dials the broker and wraps the publisher in a non-blocking stream sink.
func NewSink(cfg Config) (*publisher.AsyncSink, error) {
	p, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	return newSink(p, cfg.QueueSize), nil
}

func newSink(p *Publisher, size int) *publisher.AsyncSink {
	return publisher.NewAsyncSink("amqp", publisher.ScopePublic, p, size, 5*time.Second, logger.New("amqp-sink"))
}

func init() {
	_ = publisher.RegisterSink("amqp", func(conf map[string]any) (publisher.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSink(c)
	})
}
