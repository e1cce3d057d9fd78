package config

import (
	"log/slog"
	"time"
)

// Config is the root configuration for the oracle service.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DBConfig         `yaml:"database"`
	Cache     CacheConfig      `yaml:"cache"`
	Ingest    IngestConfig     `yaml:"ingest"`
	Providers []ProviderConfig `yaml:"providers"`
	Feeds     []FeedConfig     `yaml:"feeds"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the query API listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig holds the history database connection. URL wins over the
// individual fields when both are set.
type DBConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Cache drivers.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// CacheConfig holds the latest-price cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"`
	URL    string        `yaml:"url"`
	TTL    time.Duration `yaml:"ttl"`
}

// IngestConfig holds ingestion loop settings.
type IngestConfig struct {
	Interval     time.Duration `yaml:"interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	SaveTimeout  time.Duration `yaml:"save_timeout"`
	Policy       string        `yaml:"policy"`
	Concurrency  int           `yaml:"concurrency"`
	AllowPartial bool          `yaml:"allow_partial"`
	Backoff      BackoffConfig `yaml:"backoff"`
}

// BackoffConfig stretches the cycle delay while every feed is failing.
type BackoffConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// ProviderConfig defines one named price source.
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	Type       string        `yaml:"type"` // pyth, hermes, hermes_stream, static
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	MaxAge     time.Duration `yaml:"max_age"` // hermes_stream only

	// static only
	Price      float64 `yaml:"price"`
	Confidence float64 `yaml:"confidence"`
}

// FeedConfig maps a symbol to the sources that quote it.
type FeedConfig struct {
	Symbol  string         `yaml:"symbol"`
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig names a provider and the provider-specific feed id.
type SourceConfig struct {
	Provider string `yaml:"provider"`
	FeedID   string `yaml:"feed_id"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether the metrics listener should run. Unset means enabled.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// SlogLevel returns the configured level, falling back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Provider returns the provider config with the given name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
