package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "GTFS_"
	configEnvVar = "GTFS_CONFIG_PATH"
)

// Loader assembles a Config from defaults, an optional YAML file, then
// environment variables, each layer overriding the last.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
}

// NewLoader constructs a Loader that looks for a config file at the
// given paths, in order, unless GTFS_CONFIG_PATH names one explicitly.
func NewLoader(configPaths ...string) *Loader {
	if len(configPaths) == 0 {
		configPaths = []string{"config.yaml", "/etc/tfi-gtfs/config.yaml"}
	}
	return &Loader{
		k:           koanf.New("."),
		configPaths: configPaths,
	}
}

// Load runs the three-layer merge and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := l.loadConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"feed.data_dir":               "data",
		"feed.polling_period":         30 * time.Second,
		"feed.max_minutes":            60,
		"feed.static_max_age_seconds": 86400,

		"server.addr":             ":8080",
		"server.read_timeout":     10 * time.Second,
		"server.write_timeout":    10 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled": true,
		"metrics.addr":    ":9090",
		"metrics.path":    "/metrics",
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if path := os.Getenv(configEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return l.k.Load(file.Provider(path), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}
	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
}

// Load loads a Config using the default search paths.
func Load() (*Config, error) {
	return NewLoader().Load()
}
