package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rickgao/oracle-consensus/internal/consensus"
	"github.com/rickgao/oracle-consensus/internal/model"
)

var providerTypes = map[string]bool{
	"pyth":          true,
	"hermes":        true,
	"hermes_stream": true,
	"static":        true,
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	switch c.Cache.Driver {
	case CacheDriverRedis:
		if c.Cache.URL == "" {
			return errors.New("cache.url is required when cache.driver is redis")
		}
	case CacheDriverMemory:
	default:
		return fmt.Errorf("cache.driver must be redis or memory, got %q", c.Cache.Driver)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be > 0")
	}

	if err := c.Ingest.validate(); err != nil {
		return err
	}

	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}

	if c.Metrics.IsEnabled() {
		if c.Metrics.Addr == "" {
			return errors.New("metrics.addr is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL == "" {
		if db.Host == "" {
			return fmt.Errorf("%s.url or %s.host is required", prefix, prefix)
		}
		if db.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if db.User == "" {
			return fmt.Errorf("%s.user is required", prefix)
		}
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (in *IngestConfig) validate() error {
	if in.Interval <= 0 {
		return errors.New("ingest.interval must be > 0")
	}
	if in.FetchTimeout <= 0 {
		return errors.New("ingest.fetch_timeout must be > 0")
	}
	if in.SaveTimeout <= 0 {
		return errors.New("ingest.save_timeout must be > 0")
	}
	if in.Concurrency < 1 {
		return errors.New("ingest.concurrency must be >= 1")
	}
	if _, err := consensus.New(in.Policy); err != nil {
		return fmt.Errorf("ingest.policy: %w", err)
	}
	if in.Backoff.Enabled && in.Backoff.MaxInterval < in.Interval {
		return fmt.Errorf("ingest.backoff.max_interval (%s) cannot be below ingest.interval (%s)",
			in.Backoff.MaxInterval, in.Interval)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Providers) == 0 {
		return errors.New("at least one provider is required")
	}
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s.name %q is duplicated", prefix, p.Name)
		}
		seen[p.Name] = true
		if model.IsReservedSource(p.Name) {
			return fmt.Errorf("%s.name %q is reserved", prefix, p.Name)
		}
		if !providerTypes[p.Type] {
			return fmt.Errorf("%s.type must be pyth, hermes, hermes_stream or static, got %q", prefix, p.Type)
		}
		if p.Type == "static" {
			if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
				return fmt.Errorf("%s.price must be a positive number", prefix)
			}
			if math.IsNaN(p.Confidence) || math.IsInf(p.Confidence, 0) || p.Confidence < 0 {
				return fmt.Errorf("%s.confidence must be >= 0", prefix)
			}
			continue
		}
		if p.URL == "" {
			return fmt.Errorf("%s.url is required", prefix)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("%s.max_retries must be >= 0", prefix)
		}
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if len(c.Feeds) == 0 {
		return errors.New("at least one feed is required")
	}
	seen := make(map[string]bool, len(c.Feeds))
	for i, f := range c.Feeds {
		prefix := fmt.Sprintf("feeds[%d]", i)
		if f.Symbol == "" {
			return fmt.Errorf("%s.symbol is required", prefix)
		}
		if seen[f.Symbol] {
			return fmt.Errorf("%s.symbol %q is duplicated", prefix, f.Symbol)
		}
		seen[f.Symbol] = true
		if len(f.Sources) == 0 {
			return fmt.Errorf("%s.sources must not be empty", prefix)
		}
		for j, s := range f.Sources {
			p, ok := c.Provider(s.Provider)
			if !ok {
				return fmt.Errorf("%s.sources[%d].provider %q is not defined", prefix, j, s.Provider)
			}
			if s.FeedID == "" && p.Type != "static" {
				return fmt.Errorf("%s.sources[%d].feed_id is required", prefix, j)
			}
		}
	}
	return nil
}
