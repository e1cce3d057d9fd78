package config

import (
	"time"

	"github.com/rickgao/oracle-consensus/internal/consensus"
)

// Default values for optional configuration fields.
const (
	DefaultListenAddr      = ":3000"
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultCacheDriver = CacheDriverRedis
	DefaultCacheTTL    = 60 * time.Second

	DefaultIngestInterval     = 1 * time.Second
	DefaultFetchTimeout       = 5 * time.Second
	DefaultSaveTimeout        = 5 * time.Second
	DefaultIngestPolicy       = consensus.ModeWeighted
	DefaultIngestConcurrency  = 4
	DefaultBackoffMaxInterval = 30 * time.Second

	DefaultSolanaRPCURL    = "https://api.devnet.solana.com"
	DefaultHermesURL       = "https://hermes.pyth.network"
	DefaultHermesStreamURL = "wss://hermes.pyth.network/ws"
	DefaultProviderTimeout = 5 * time.Second
	DefaultProviderRetries = 3
	DefaultStreamMaxAge    = 30 * time.Second
	DefaultProviderName    = "pyth"
	DefaultFeedSymbol      = "SOL"
	DefaultSOLPriceAccount = "J83w4HKfqxwcq3BEMMkPFSppX3gqekLyLJBexebFVkix"

	DefaultMetricsAddr = ":9090"
	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns a configuration that only needs a database address.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultListenAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyDBDefaults(&c.Database)

	// Cache defaults
	if c.Cache.Driver == "" {
		c.Cache.Driver = DefaultCacheDriver
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}

	// Ingest defaults
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = DefaultIngestInterval
	}
	if c.Ingest.FetchTimeout == 0 {
		c.Ingest.FetchTimeout = DefaultFetchTimeout
	}
	if c.Ingest.SaveTimeout == 0 {
		c.Ingest.SaveTimeout = DefaultSaveTimeout
	}
	if c.Ingest.Policy == "" {
		c.Ingest.Policy = DefaultIngestPolicy
	}
	if c.Ingest.Concurrency == 0 {
		c.Ingest.Concurrency = DefaultIngestConcurrency
	}
	if c.Ingest.Backoff.MaxInterval == 0 {
		c.Ingest.Backoff.MaxInterval = DefaultBackoffMaxInterval
	}

	// Providers and feeds default to the devnet SOL account.
	if len(c.Providers) == 0 {
		c.Providers = []ProviderConfig{{Name: DefaultProviderName, Type: "pyth"}}
	}
	if len(c.Feeds) == 0 {
		c.Feeds = []FeedConfig{{
			Symbol:  DefaultFeedSymbol,
			Sources: []SourceConfig{{Provider: DefaultProviderName, FeedID: DefaultSOLPriceAccount}},
		}}
	}
	for i := range c.Providers {
		applyProviderDefaults(&c.Providers[i])
	}

	// Metrics defaults
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.URL == "" {
		switch p.Type {
		case "pyth":
			p.URL = DefaultSolanaRPCURL
		case "hermes":
			p.URL = DefaultHermesURL
		case "hermes_stream":
			p.URL = DefaultHermesStreamURL
		}
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultProviderTimeout
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultProviderRetries
	}
	if p.Type == "hermes_stream" && p.MaxAge == 0 {
		p.MaxAge = DefaultStreamMaxAge
	}
}
