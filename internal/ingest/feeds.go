package ingest

import (
	"fmt"

	"github.com/rickgao/oracle-consensus/internal/config"
	"github.com/rickgao/oracle-consensus/internal/provider"
)

// ProviderLookup resolves a provider by name.
type ProviderLookup interface {
	Get(name string) (provider.Provider, bool)
}

// ConfigFrom converts the ingest section of the config file.
func ConfigFrom(c config.IngestConfig) Config {
	return Config{
		Interval:     c.Interval,
		FetchTimeout: c.FetchTimeout,
		SaveTimeout:  c.SaveTimeout,
		Concurrency:  c.Concurrency,
		AllowPartial: c.AllowPartial,
		Backoff: BackoffConfig{
			Enabled:     c.Backoff.Enabled,
			MaxInterval: c.Backoff.MaxInterval,
		},
	}
}

// BuildFeeds binds each configured feed to its providers.
func BuildFeeds(feeds []config.FeedConfig, providers ProviderLookup) ([]Feed, error) {
	out := make([]Feed, 0, len(feeds))
	for _, fc := range feeds {
		feed := Feed{Symbol: fc.Symbol, Sources: make([]Source, 0, len(fc.Sources))}
		for _, sc := range fc.Sources {
			p, ok := providers.Get(sc.Provider)
			if !ok {
				return nil, fmt.Errorf("feed %s: unknown provider %q", fc.Symbol, sc.Provider)
			}
			feed.Sources = append(feed.Sources, Source{Provider: p, FeedID: sc.FeedID})
		}
		out = append(out, feed)
	}
	return out, nil
}
