// Package config loads the layered configuration this module runs on:
// built-in defaults, overridden by an optional YAML file, overridden by
// GTFS_-prefixed environment variables.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the full set of knobs the loader, ingestor, resolver and
// server read at startup.
type Config struct {
	Feed    FeedConfig    `koanf:"feed"`
	Cache   CacheConfig   `koanf:"cache"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// FeedConfig points at the static and realtime sources for one transit
// feed, and the stop filter that bounds how much of it gets loaded.
type FeedConfig struct {
	StaticURL            string        `koanf:"static_url"`
	LiveURL              string        `koanf:"live_url"`
	APIKey               string        `koanf:"api_key"`
	DataDir              string        `koanf:"data_dir"`
	PollingPeriod        time.Duration `koanf:"polling_period"`
	MaxMinutes           int           `koanf:"max_minutes"`
	FilterStops          []string      `koanf:"filter_stops"`
	StaticMaxAgeSeconds  int           `koanf:"static_max_age_seconds"`
}

// CacheConfig selects and configures the KV store's external backend.
type CacheConfig struct {
	BackendURL string `koanf:"backend_url"` // empty means in-process only
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures slog output, with lumberjack rotation when
// writing to a file.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int  `koanf:"max_size"` // MB
	MaxBackups int  `koanf:"max_backups"`
	MaxAge     int  `koanf:"max_age"` // days
	Compress   bool `koanf:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Path    string `koanf:"path"`
}

// FilterStopSet turns the configured stop list into the set shape the
// loader and ingestor want; a nil/empty config means no filter.
func (f FeedConfig) FilterStopSet() map[string]bool {
	if len(f.FilterStops) == 0 {
		return nil
	}
	set := make(map[string]bool, len(f.FilterStops))
	for _, stop := range f.FilterStops {
		set[stop] = true
	}
	return set
}

// Validate checks the configuration, substituting sane defaults for
// fields a malformed config left unusable rather than refusing to start.
func (c *Config) Validate() error {
	if c.Feed.DataDir == "" {
		c.Feed.DataDir = "data"
	}
	if c.Feed.PollingPeriod <= 0 {
		c.Feed.PollingPeriod = 30 * time.Second
	}
	if c.Feed.MaxMinutes <= 0 {
		c.Feed.MaxMinutes = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "warning":
		level = "warn"
	case "critical":
		level = "error"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[level] {
		slog.Warn("invalid log.level, substituting default", "got", c.Log.Level, "default", "info")
		level = "info"
	}
	c.Log.Level = level

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	return nil
}
