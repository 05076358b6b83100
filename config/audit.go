package config

import (
	"fmt"
	"slices"

	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/factory"
)

// AuditConfig defines the in-memory audit log and its optional persistent
// store.
type AuditConfig struct {
	// Capacity bounds the entries kept in memory.
	Capacity int `json:"capacity"`
	// Store selects the persistent backend: "jsonl", "rotating" or "sqlite".
	// conf.path is the file location; the rotating store also reads
	// max_size_mb, max_backups and max_age_days.
	Store factory.ModuleConfig `json:"store"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Capacity == 0 {
		c.Capacity = audit.DefaultCapacity
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("audit: capacity must not be negative")
	}
	if c.Store.Type == "" {
		return nil
	}
	if !slices.Contains(audit.StoreTypes(), c.Store.Type) {
		return fmt.Errorf("audit: unknown store %s", c.Store.Type)
	}
	if p, _ := c.Store.Conf["path"].(string); p == "" {
		return fmt.Errorf("audit: store path is required")
	}
	return nil
}
