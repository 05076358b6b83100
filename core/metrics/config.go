package metrics

import (
	"fmt"

	"github.com/kilianp07/freightmarket/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr enables the dedicated /metrics listener when non-empty.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Validate rejects sink entries without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return nil
}
