package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/oracle-consensus/internal/cache"
	"github.com/rickgao/oracle-consensus/internal/model"
)

// History is the append-only record of every saved observation.
type History interface {
	Append(ctx context.Context, obs model.Observation) error
}

// Cache holds the latest observation per symbol with a TTL. Get must
// return cache.ErrNotFound for an absent or expired symbol.
type Cache interface {
	Set(ctx context.Context, obs model.Observation, ttl time.Duration) error
	Get(ctx context.Context, symbol string) (model.Observation, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Store is the shared persistence handle for the ingest loop and the
// query server.
type Store struct {
	history History
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// New creates a Store. ttl is the cache lifetime of each saved observation.
func New(history History, c Cache, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{history: history, cache: c, ttl: ttl, logger: logger}
}

// TTL returns the cache lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save writes obs to history and cache. Both writes are always attempted;
// every failure is returned as a *PersistError joined into one error.
func (s *Store) Save(ctx context.Context, obs model.Observation) error {
	var historyErr, cacheErr error

	// Both goroutines return nil so errgroup never cancels the sibling.
	var g errgroup.Group
	g.Go(func() error {
		if err := s.history.Append(ctx, obs); err != nil {
			historyErr = &PersistError{Tier: TierHistory, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		if err := s.cache.Set(ctx, obs, s.ttl); err != nil {
			cacheErr = &PersistError{Tier: TierCache, Err: err}
		}
		return nil
	})
	_ = g.Wait()

	return errors.Join(historyErr, cacheErr)
}

// GetLatest returns the live observation for symbol from the cache.
func (s *Store) GetLatest(ctx context.Context, symbol string) (model.Observation, error) {
	obs, err := s.cache.Get(ctx, symbol)
	if errors.Is(err, cache.ErrNotFound) {
		return model.Observation{}, ErrNotFound
	}
	if err != nil {
		return model.Observation{}, fmt.Errorf("get latest %s: %w", symbol, err)
	}
	return obs, nil
}

// Ping checks every tier that supports it and reports the status of each.
func (s *Store) Ping(ctx context.Context) map[Tier]error {
	status := make(map[Tier]error, 2)
	if p, ok := s.history.(pinger); ok {
		status[TierHistory] = p.Ping(ctx)
	} else {
		status[TierHistory] = nil
	}
	if p, ok := s.cache.(pinger); ok {
		status[TierCache] = p.Ping(ctx)
	} else {
		status[TierCache] = nil
	}
	return status
}
