package audit

import (
	"time"

	"github.com/kilianp07/freightmarket/core/factory"
)

// StoreConfig holds the settings shared by the file and database stores.
type StoreConfig struct {
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a persistent store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// StoreTypes lists the registered store types.
func StoreTypes() []string { return storeRegistry.Types() }

// NewStore builds the store described by cfg. An empty type disables
// persistence and returns a nil Store.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	return storeRegistry.Create(cfg)
}

func decodeStoreConfig(conf map[string]any) (StoreConfig, error) {
	var sc StoreConfig
	if err := factory.Decode(conf, &sc); err != nil {
		return sc, err
	}
	if sc.MaxSizeMB <= 0 {
		sc.MaxSizeMB = 10
	}
	return sc, nil
}

func timeFromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func init() {
	_ = RegisterStore("jsonl", func(conf map[string]any) (Store, error) {
		sc, err := decodeStoreConfig(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(sc.Path)
	})
	_ = RegisterStore("rotating", func(conf map[string]any) (Store, error) {
		sc, err := decodeStoreConfig(conf)
		if err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(sc.Path, sc.MaxSizeMB, sc.MaxBackups, sc.MaxAgeDays)
	})
	_ = RegisterStore("sqlite", func(conf map[string]any) (Store, error) {
		sc, err := decodeStoreConfig(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(sc.Path)
	})
}
