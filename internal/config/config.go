package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Provider struct {
		BaseURL    string `yaml:"base_url"`
		Timeout    string `yaml:"timeout"`
		CatalogTTL string `yaml:"catalog_ttl"`
	} `yaml:"provider"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SessionLog struct {
		Path string `yaml:"path"`
	} `yaml:"session_log"`
	Game struct {
		RequireReady *bool `yaml:"require_ready"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireReady defaults to true when unset: every player must flag ready
// before a start is accepted.
func (c Config) RequireReady() bool {
	if c.Game.RequireReady == nil {
		return true
	}
	return *c.Game.RequireReady
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
