package mqtt

import (
	"time"

	"github.com/kilianp07/freightmarket/core/factory"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/logger"
)

// NewRoomSink connects to the broker and wraps the publisher in a
// non-blocking room sink.
func NewRoomSink(cfg Config) (*publisher.AsyncSink, error) {
	p, err := NewPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return publisher.NewAsyncSink("mqtt", publisher.ScopeRooms, p, cfg.QueueSize, 5*time.Second, logger.New("mqtt-sink")), nil
}

func init() {
	_ = publisher.RegisterSink("mqtt", func(conf map[string]any) (publisher.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRoomSink(c)
	})
}
