package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rickgao/oracle-consensus/internal/api"
	"github.com/rickgao/oracle-consensus/internal/config"
)

// Lifecycle is implemented by providers that hold background resources.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry creates a registry from already built providers.
func NewRegistry(logger *slog.Logger, providers ...Provider) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{providers: make(map[string]Provider, len(providers)), logger: logger}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider called name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start starts every provider that has a lifecycle. On failure the
// providers already started are stopped again.
func (r *Registry) Start(ctx context.Context) error {
	var started []Lifecycle
	for _, name := range r.Names() {
		lc, ok := r.providers[name].(Lifecycle)
		if !ok {
			continue
		}
		if err := lc.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Stop(ctx)
			}
			return fmt.Errorf("start provider %s: %w", name, err)
		}
		started = append(started, lc)
	}
	return nil
}

// Stop stops every provider that has a lifecycle.
func (r *Registry) Stop(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if lc, ok := r.providers[name].(Lifecycle); ok {
			if err := lc.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop provider %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Build creates the providers named in cfg.Providers.
func Build(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Stream providers subscribe to every feed id routed to them.
	streamIDs := make(map[string][]string)
	for _, feed := range cfg.Feeds {
		for _, src := range feed.Sources {
			streamIDs[src.Provider] = append(streamIDs[src.Provider], src.FeedID)
		}
	}

	providers := make([]Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := build(pc, streamIDs[pc.Name], logger)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		providers = append(providers, p)
	}
	return NewRegistry(logger, providers...), nil
}

func build(pc config.ProviderConfig, feedIDs []string, logger *slog.Logger) (Provider, error) {
	switch pc.Type {
	case TypePyth:
		return NewPythAccount(pc.Name, pc.URL, logger), nil

	case TypeHermes:
		client := api.NewClient(pc.URL, pc.APIKey,
			api.WithTimeout(pc.Timeout),
			api.WithRetries(pc.MaxRetries, api.DefaultRetryBackoff),
			api.WithLogger(logger),
		)
		return NewHermes(pc.Name, client), nil

	case TypeHermesStream:
		cfg := DefaultStreamConfig()
		cfg.URL = pc.URL
		cfg.APIKey = pc.APIKey
		if pc.MaxAge > 0 {
			cfg.MaxAge = pc.MaxAge
		}
		return NewStream(pc.Name, cfg, feedIDs, logger), nil

	case TypeStatic:
		return NewStatic(pc.Name, pc.Price, pc.Confidence), nil

	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
}
