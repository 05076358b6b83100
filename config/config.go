package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/freightmarket/auth"
	"github.com/kilianp07/freightmarket/core/metrics"
	"github.com/kilianp07/freightmarket/infra/realtime"
)

// EnvPrefix marks the environment overrides. FM_HTTP__ADDR sets http.addr.
const EnvPrefix = "FM_"

type Config struct {
	HTTP     HTTPConfig            `json:"http"`
	Session  auth.Conf             `json:"session"`
	Stream   realtime.StreamConfig `json:"stream"`
	Realtime RealtimeConfig        `json:"realtime"`
	Metrics  metrics.Config        `json:"metrics"`
	Audit    AuditConfig           `json:"audit"`
	Sentry   SentryConfig          `json:"sentry"`
	Payments PaymentsConfig        `json:"payments"`
	Seed     SeedConfig            `json:"seed"`
}

// Load reads path, applies the environment overrides, then defaults and
// validation. An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps FM_SECTION__KEY to section.key. List settings accept comma
// separated values.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.HasSuffix(key, "origins") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Session.SetDefaults()
	c.Stream.SetDefaults()
	c.Realtime.SetDefaults()
	c.Audit.SetDefaults()
	c.Sentry.SetDefaults()
	c.Seed.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.HTTP, c.Session, c.Stream, c.Realtime, c.Metrics, c.Audit, c.Sentry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
