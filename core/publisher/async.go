package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/logger"
	"github.com/kilianp07/freightmarket/core/monitoring"
)

var (
	// ErrQueueFull is returned when an AsyncSink cannot accept more events.
	ErrQueueFull = errors.New("publisher: queue full")
	// ErrClosed is returned when delivering to a closed sink.
	ErrClosed = errors.New("publisher: sink closed")
)

// Sender performs the blocking network write of an external transport.
type Sender interface {
	Send(ctx context.Context, ev events.Event) error
	Close() error
}

// AsyncSink turns a blocking Sender into a non-blocking Sink backed by a
// bounded queue drained by one worker goroutine.
type AsyncSink struct {
	name    string
	scope   Scope
	sender  Sender
	queue   chan events.Event
	done    chan struct{}
	timeout time.Duration
	log     logger.Logger

	mu     sync.RWMutex
	closed bool
}

// DefaultQueueSize is used when NewAsyncSink receives a non-positive size.
const DefaultQueueSize = 256

// NewAsyncSink starts the worker draining the queue into sender.
func NewAsyncSink(name string, scope Scope, sender Sender, size int, timeout time.Duration, log logger.Logger) *AsyncSink {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &AsyncSink{
		name:    name,
		scope:   scope,
		sender:  sender,
		queue:   make(chan events.Event, size),
		done:    make(chan struct{}),
		timeout: timeout,
		log:     log,
	}
	go a.run()
	return a
}

func (a *AsyncSink) Name() string { return a.name }
func (a *AsyncSink) Scope() Scope { return a.scope }

// Deliver enqueues ev without blocking.
func (a *AsyncSink) Deliver(ev events.Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := monitoring.Guard(map[string]string{"module": "publisher", "sink": a.name, "event": ev.Name}, func() error {
			return a.sender.Send(ctx, ev)
		})
		if err != nil {
			a.log.Errorf("%s send %s: %v", a.name, ev.Name, err)
		}
		cancel()
	}
}

// Close drains the queue and closes the sender.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
	return a.sender.Close()
}
