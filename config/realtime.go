package config

import (
	"github.com/kilianp07/freightmarket/core/factory"
	"github.com/kilianp07/freightmarket/core/publisher"
	"github.com/kilianp07/freightmarket/infra/realtime"
)

// RealtimeConfig configures the WebSocket rooms and the optional external
// sinks (mqtt, kafka, amqp).
type RealtimeConfig struct {
	WebSocket realtime.RoomConfig    `json:"websocket"`
	Sinks     []factory.ModuleConfig `json:"sinks"`
}

func (c *RealtimeConfig) SetDefaults() { c.WebSocket.SetDefaults() }

func (c RealtimeConfig) Validate() error { return c.Publisher().Validate() }

// Publisher returns the sink list in the form expected by publisher.NewSinks.
func (c RealtimeConfig) Publisher() publisher.Config {
	return publisher.Config{Sinks: c.Sinks}
}
