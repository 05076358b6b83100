package publisher

import (
	"fmt"

	"github.com/kilianp07/freightmarket/core/factory"
)

// Config lists the external realtime sinks to attach next to the built-in
// WebSocket and SSE transports.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Validate rejects sink entries without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("realtime: sink %d has no type", i)
		}
	}
	return nil
}

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a realtime sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSinks instantiates every configured sink. Sinks created before a failure
// are closed.
func NewSinks(cfgs []factory.ModuleConfig) ([]Sink, error) {
	out := make([]Sink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			for _, created := range out {
				if cl, ok := created.(interface{ Close() error }); ok {
					_ = cl.Close()
				}
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
