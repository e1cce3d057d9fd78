package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rickgao/oracle-consensus/internal/api"
	"github.com/rickgao/oracle-consensus/internal/connection"
	"github.com/rickgao/oracle-consensus/internal/model"
)

// StreamConfig configures a Hermes websocket provider.
type StreamConfig struct {
	URL                  string
	APIKey               string
	MaxAge               time.Duration // Older cached updates are treated as missing
	ReconnectBaseDelay   time.Duration
	ReconnectMaxInterval time.Duration
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxAge:               30 * time.Second,
		ReconnectBaseDelay:   500 * time.Millisecond,
		ReconnectMaxInterval: 30 * time.Second,
	}
}

type streamQuote struct {
	value      connection.PriceValue
	receivedAt time.Time
}

// Stream keeps the latest Hermes update for each subscribed feed and
// serves Fetch from memory. It must be started before use.
type Stream struct {
	name   string
	cfg    StreamConfig
	ids    []string
	logger *slog.Logger

	newClient func(connection.ClientConfig, *slog.Logger) connection.Client
	now       func() time.Time

	mu         sync.RWMutex
	latest     map[string]streamQuote
	connected  atomic.Bool
	reconnects atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStream creates a streaming provider subscribed to feedIDs.
func NewStream(name string, cfg StreamConfig, feedIDs []string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultStreamConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaults.MaxAge
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxInterval <= 0 {
		cfg.ReconnectMaxInterval = defaults.ReconnectMaxInterval
	}

	ids := make([]string, 0, len(feedIDs))
	seen := make(map[string]bool, len(feedIDs))
	for _, id := range feedIDs {
		n := api.NormalizeFeedID(id)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}

	return &Stream{
		name:      name,
		cfg:       cfg,
		ids:       ids,
		logger:    logger.With("provider", name),
		newClient: connection.NewClient,
		now:       time.Now,
		latest:    make(map[string]streamQuote),
	}
}

// Name implements Provider.
func (s *Stream) Name() string { return s.name }

// Start connects in the background and keeps reconnecting until Stop.
func (s *Stream) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("price stream started", "url", s.cfg.URL, "feeds", len(s.ids))
	return nil
}

// Stop closes the stream and waits for the reader to exit.
func (s *Stream) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("price stream stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether a live websocket session is established.
func (s *Stream) Connected() bool {
	return s.connected.Load()
}

// Fetch implements Provider.
func (s *Stream) Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return model.Observation{}, connectionError(s.name, err)
	}
	if !s.connected.Load() {
		return model.Observation{}, connectionError(s.name, connection.ErrNotConnected)
	}

	id := api.NormalizeFeedID(feedID)
	s.mu.RLock()
	q, ok := s.latest[id]
	s.mu.RUnlock()

	if !ok {
		return model.Observation{}, notFoundError(s.name, fmt.Errorf("no update received for %s", feedID))
	}
	if age := s.now().Sub(q.receivedAt); age > s.cfg.MaxAge {
		return model.Observation{}, notFoundError(s.name, fmt.Errorf("latest update for %s is %s old", feedID, age.Round(time.Millisecond)))
	}

	data := api.PriceData{
		Price:       q.value.Price,
		Conf:        q.value.Conf,
		Expo:        q.value.Expo,
		PublishTime: q.value.PublishTime,
	}
	price, conf, err := data.ToDecimal()
	if err != nil {
		return model.Observation{}, decodeError(s.name, err)
	}
	return newObservation(s.name, symbol, price, conf, q.value.PublishTime)
}

func (s *Stream) run() {
	defer s.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.ReconnectBaseDelay
	bo.MaxInterval = s.cfg.ReconnectMaxInterval
	bo.MaxElapsedTime = 0
	b := backoff.WithContext(bo, s.ctx)

	for {
		received, err := s.session()
		if s.ctx.Err() != nil {
			return
		}
		if received {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		s.reconnects.Add(1)
		s.logger.Warn("price stream disconnected, reconnecting",
			"err", err,
			"backoff", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session runs one websocket connection until it fails. It reports
// whether any price update was received.
func (s *Stream) session() (bool, error) {
	client := s.newClient(connection.ClientConfig{
		URL:    s.cfg.URL,
		APIKey: s.cfg.APIKey,
	}, s.logger)
	defer client.Close()

	if err := client.Connect(s.ctx); err != nil {
		return false, err
	}
	if err := client.Subscribe(s.ids); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	s.connected.Store(true)
	defer s.connected.Store(false)

	received := false
	for {
		select {
		case <-s.ctx.Done():
			return received, s.ctx.Err()
		case err := <-client.Errors():
			return received, err
		case msg := <-client.Messages():
			if s.handle(msg) {
				received = true
			}
		}
	}
}

// handle applies one frame and reports whether it was a price update.
func (s *Stream) handle(msg connection.TimestampedMessage) bool {
	var env connection.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logger.Debug("ignoring malformed frame", "err", err)
		return false
	}

	switch env.Type {
	case connection.TypePriceUpdate:
		var pu connection.PriceUpdate
		if err := json.Unmarshal(msg.Data, &pu); err != nil {
			s.logger.Debug("ignoring malformed price update", "err", err)
			return false
		}
		id := api.NormalizeFeedID(pu.PriceFeed.ID)
		s.mu.Lock()
		s.latest[id] = streamQuote{value: pu.PriceFeed.Price, receivedAt: msg.ReceivedAt}
		s.mu.Unlock()
		return true

	case connection.TypeResponse:
		var resp connection.Response
		if err := json.Unmarshal(msg.Data, &resp); err == nil && resp.Status == "error" {
			s.logger.Error("subscription rejected", "err", errors.New(resp.Error))
		}
	}
	return false
}
