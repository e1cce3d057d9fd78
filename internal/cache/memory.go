package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// Memory keeps observations in process.
type Memory struct {
	items *ttlcache.Cache[string, model.Observation]
}

// NewMemory creates an in-process cache and starts its expiry loop.
// Call Close to stop it.
func NewMemory(defaultTTL time.Duration) *Memory {
	items := ttlcache.New[string, model.Observation](
		ttlcache.WithTTL[string, model.Observation](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, model.Observation](),
	)
	go items.Start()
	return &Memory{items: items}
}

// Set stores obs for ttl.
func (m *Memory) Set(ctx context.Context, obs model.Observation, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.Set(Key(obs.Symbol), obs, ttl)
	return nil
}

// Get returns the live observation for symbol.
func (m *Memory) Get(ctx context.Context, symbol string) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return model.Observation{}, err
	}
	item := m.items.Get(Key(symbol))
	if item == nil || item.IsExpired() {
		return model.Observation{}, ErrNotFound
	}
	return item.Value(), nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close stops the expiry loop.
func (m *Memory) Close() error {
	m.items.Stop()
	return nil
}
