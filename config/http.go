package config

import (
	"fmt"
	"time"
)

// HTTPConfig defines the public listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// CORSOrigins lists the browser origins allowed to call the API. "*"
	// allows any origin.
	CORSOrigins []string `json:"cors_origins"`
	// ShutdownTimeoutSec bounds the graceful shutdown.
	ShutdownTimeoutSec int `json:"shutdown_timeout_sec"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ShutdownTimeoutSec == 0 {
		c.ShutdownTimeoutSec = 10
	}
}

func (c HTTPConfig) Validate() error {
	if c.ShutdownTimeoutSec < 0 {
		return fmt.Errorf("http: shutdown_timeout_sec must not be negative")
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// PaymentsConfig secures the payment provider callback.
type PaymentsConfig struct {
	// WebhookSecret enables X-Payment-Signature checks when set.
	WebhookSecret string `json:"webhook_secret"`
}

// SeedConfig controls the demo data set.
type SeedConfig struct {
	// OnStart loads the demo data when the service starts. Defaults to true.
	OnStart *bool `json:"on_start"`
}

func (c *SeedConfig) SetDefaults() {
	if c.OnStart == nil {
		v := true
		c.OnStart = &v
	}
}

// Enabled reports whether the service seeds on start.
func (c SeedConfig) Enabled() bool { return c.OnStart == nil || *c.OnStart }
