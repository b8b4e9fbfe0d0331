package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RealtimeConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MetricsInterval   time.Duration `yaml:"metrics_interval"`
	StaleThreshold    time.Duration `yaml:"stale_threshold"`
}

// UnmarshalYAML accepts Go duration strings ("30s", "2m"); yaml.v3 has no
// native time.Duration support. Missing keys keep the values already set.
func (r *RealtimeConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		HeartbeatInterval string `yaml:"heartbeat_interval"`
		MetricsInterval   string `yaml:"metrics_interval"`
		StaleThreshold    string `yaml:"stale_threshold"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	set := func(dst *time.Duration, src, key string) error {
		if src == "" {
			return nil
		}
		d, err := time.ParseDuration(src)
		if err != nil {
			return fmt.Errorf("realtime.%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if err := set(&r.HeartbeatInterval, raw.HeartbeatInterval, "heartbeat_interval"); err != nil {
		return err
	}
	if err := set(&r.MetricsInterval, raw.MetricsInterval, "metrics_interval"); err != nil {
		return err
	}
	return set(&r.StaleThreshold, raw.StaleThreshold, "stale_threshold")
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8008,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Path: "analysis-console.db",
		},
		Realtime: RealtimeConfig{
			HeartbeatInterval: 30 * time.Second,
			MetricsInterval:   time.Second,
			StaleThreshold:    90 * time.Second,
		},
	}
}

// Load reads a yaml config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// The stale threshold must exceed the heartbeat interval or every
	// session would be swept between two heartbeats.
	if cfg.Realtime.StaleThreshold <= cfg.Realtime.HeartbeatInterval {
		cfg.Realtime.StaleThreshold = 3 * cfg.Realtime.HeartbeatInterval
	}

	return cfg, nil
}
