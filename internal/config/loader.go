package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables. An
// empty path yields an empty config.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config, applies environment overrides, then
// applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads .env, the config file, overrides and defaults,
// then validates.
func LoadAndValidate(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files (default ".env") into
// the process environment. Missing files are ignored; variables that
// are already set are left alone.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Environment variables that override file values.
const (
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisURL       = "REDIS_URL"
	EnvFeedURL        = "FEED_URL"
	EnvIngestInterval = "INGEST_INTERVAL"
	EnvCacheTTL       = "CACHE_TTL"
	EnvIngestPolicy   = "INGEST_POLICY"
	EnvListenAddr     = "LISTEN_ADDR"
	EnvLogLevel       = "LOG_LEVEL"
)

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvDatabaseURL); ok {
		c.Database.URL = v
	}
	if v, ok := get(EnvRedisURL); ok {
		c.Cache.URL = v
	}
	if v, ok := get(EnvFeedURL); ok {
		if len(c.Providers) == 0 {
			c.Providers = []ProviderConfig{{Name: DefaultProviderName, Type: "pyth"}}
		}
		c.Providers[0].URL = v
	}
	if v, ok := get(EnvIngestInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIngestInterval, err)
		}
		c.Ingest.Interval = d
	}
	if v, ok := get(EnvCacheTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = d
	}
	if v, ok := get(EnvIngestPolicy); ok {
		c.Ingest.Policy = v
	}
	if v, ok := get(EnvListenAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	return nil
}
