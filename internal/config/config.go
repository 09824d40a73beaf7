// Package config loads and validates populator configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all populator knobs loaded via Viper.
type Config struct {
	Source     SourceConfig   `mapstructure:"source"`
	STAC       STACConfig     `mapstructure:"stac"`
	CRS        CRSConfig      `mapstructure:"crs"`
	Export     ExportConfig   `mapstructure:"export"`
	Reingest   ReingestConfig `mapstructure:"reingest"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Logging    LoggingConfig  `mapstructure:"logging"`
	Convention string         `mapstructure:"convention"`
	Collection string         `mapstructure:"collection"`
}

// SourceConfig addresses the data catalog to harvest.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	MaxDepth       int    `mapstructure:"max_depth"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// STACConfig addresses the destination API.
type STACConfig struct {
	Host   string `mapstructure:"host"`
	Update bool   `mapstructure:"update"`
}

// CRSConfig carries the coordinate reference system overrides.
type CRSConfig struct {
	Force    string `mapstructure:"force"`
	Fallback string `mapstructure:"fallback"`
}

// ExportConfig selects file output instead of an API.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// ReingestConfig addresses a local tree of already-composed records to
// republish.
type ReingestConfig struct {
	Dir   string `mapstructure:"dir"`
	Prune bool   `mapstructure:"prune"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POPULATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.max_depth", 1000)
	v.SetDefault("source.timeout_seconds", 30)
	v.SetDefault("source.user_agent", "stac-populator/0.1")
	v.SetDefault("stac.update", false)
	v.SetDefault("reingest.prune", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", true)
	v.SetDefault("convention", "base")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.MaxDepth < 0 {
		return fmt.Errorf("source.max_depth must be >= 0")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}

// SourceTimeout converts the configured timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}
