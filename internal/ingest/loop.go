package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/rickgao/oracle-consensus/internal/consensus"
	"github.com/rickgao/oracle-consensus/internal/metrics"
	"github.com/rickgao/oracle-consensus/internal/model"
	"github.com/rickgao/oracle-consensus/internal/provider"
	"github.com/rickgao/oracle-consensus/internal/store"
)

// Saver persists a consensus observation.
type Saver interface {
	Save(ctx context.Context, obs model.Observation) error
}

// Source is one provider quoting a feed.
type Source struct {
	Provider provider.Provider
	FeedID   string
}

// Feed is a symbol and the sources that quote it.
type Feed struct {
	Symbol  string
	Sources []Source
}

// BackoffConfig stretches the delay between cycles while every feed fails.
type BackoffConfig struct {
	Enabled     bool
	MaxInterval time.Duration
}

// Config holds ingestion loop configuration.
type Config struct {
	Interval     time.Duration // Delay between cycles (default: 1s)
	FetchTimeout time.Duration // Per-fetch timeout (default: 5s)
	SaveTimeout  time.Duration // Per-save timeout (default: 5s)
	Concurrency  int           // Max concurrent fetches (default: 4)
	AllowPartial bool          // Aggregate whatever arrived instead of skipping the feed
	Backoff      BackoffConfig
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     time.Second,
		FetchTimeout: 5 * time.Second,
		SaveTimeout:  5 * time.Second,
		Concurrency:  4,
		Backoff:      BackoffConfig{MaxInterval: 30 * time.Second},
	}
}

// Skip reasons recorded in metrics.
const (
	SkipFetchFailed = "fetch_failed"
	SkipNoConsensus = "no_consensus"
)

// CycleResult summarizes one cycle.
type CycleResult struct {
	ID       string
	Saved    int // feeds whose consensus was fully persisted
	Partial  int // feeds persisted to only some tiers
	Skipped  int // feeds with no consensus this cycle
	Failed   int // feeds whose save failed on every tier
	Duration time.Duration
}

// AllFailed reports whether no feed made any progress.
func (r CycleResult) AllFailed() bool {
	return r.Saved == 0 && r.Partial == 0
}

// Stats are cumulative counters since start.
type Stats struct {
	Cycles  int64
	Saved   int64
	Skipped int64
	Errors  int64
}

// Loop periodically fetches, aggregates and saves every feed.
type Loop struct {
	cfg    Config
	feeds  []Feed
	policy consensus.Policy
	saver  Saver
	logger *slog.Logger

	cycles  atomic.Int64
	saved   atomic.Int64
	skipped atomic.Int64
	errs    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Loop.
func New(cfg Config, feeds []Feed, policy consensus.Policy, saver Saver, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.Backoff.MaxInterval < cfg.Interval {
		cfg.Backoff.MaxInterval = max(defaults.Backoff.MaxInterval, cfg.Interval)
	}
	return &Loop{
		cfg:    cfg,
		feeds:  feeds,
		policy: policy,
		saver:  saver,
		logger: logger,
	}
}

// Start begins the ingestion loop.
func (l *Loop) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run()

	l.logger.Info("ingest loop started",
		"interval", l.cfg.Interval,
		"policy", l.policy.Name(),
		"feeds", len(l.feeds),
		"allow_partial", l.cfg.AllowPartial,
	)

	return nil
}

// Stop asks the loop to exit after the current cycle and waits for it.
func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("ingest loop stopped", "cycles", l.cycles.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns cumulative counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:  l.cycles.Load(),
		Saved:   l.saved.Load(),
		Skipped: l.skipped.Load(),
		Errors:  l.errs.Load(),
	}
}

// run is the main loop.
func (l *Loop) run() {
	defer l.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.Interval
	bo.MaxInterval = l.cfg.Backoff.MaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-timer.C:
		}

		// An in-flight cycle is not interrupted by Stop; its own
		// timeouts bound it.
		res := l.RunCycle(context.WithoutCancel(l.ctx))

		delay := l.cfg.Interval
		if l.cfg.Backoff.Enabled && len(l.feeds) > 0 {
			if res.AllFailed() {
				delay = bo.NextBackOff()
				l.logger.Warn("all feeds failed, backing off", "cycle", res.ID, "delay", delay)
			} else {
				bo.Reset()
			}
		}
		timer.Reset(delay)
	}
}

type fetchResult struct {
	feed int
	obs  model.Observation
	err  error
	src  string
}

// RunCycle performs one full cycle over every feed.
func (l *Loop) RunCycle(ctx context.Context) CycleResult {
	start := time.Now()
	res := CycleResult{ID: uuid.NewString()}
	logger := l.logger.With("cycle", res.ID)

	results := l.fetchAll(ctx, logger)

	for i, feed := range l.feeds {
		switch l.processFeed(ctx, logger, feed, results[i]) {
		case outcomeSaved:
			res.Saved++
		case outcomePartial:
			res.Partial++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
	}

	res.Duration = time.Since(start)
	l.cycles.Add(1)
	metrics.RecordCycle(res.Duration)

	logger.Debug("ingest cycle complete",
		"feeds", len(l.feeds),
		"saved", res.Saved,
		"partial", res.Partial,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", res.Duration,
	)
	return res
}

// fetchAll fetches every source of every feed with bounded concurrency
// and groups the results by feed, preserving source order.
func (l *Loop) fetchAll(ctx context.Context, logger *slog.Logger) [][]fetchResult {
	results := make([][]fetchResult, len(l.feeds))
	for i, feed := range l.feeds {
		results[i] = make([]fetchResult, len(feed.Sources))
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, l.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, feed := range l.feeds {
		for j, src := range feed.Sources {
			wg.Add(1)
			go func(i, j int, symbol string, src Source) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i][j] = fetchResult{feed: i, src: src.Provider.Name(), err: ctx.Err()}
					return
				}

				results[i][j] = l.fetch(ctx, logger, i, symbol, src)
			}(i, j, feed.Symbol, src)
		}
	}

	wg.Wait()
	return results
}

func (l *Loop) fetch(ctx context.Context, logger *slog.Logger, feed int, symbol string, src Source) fetchResult {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.FetchTimeout)
	defer cancel()

	name := src.Provider.Name()
	obs, err := src.Provider.Fetch(ctx, symbol, src.FeedID)
	if err != nil {
		kind := string(provider.KindOf(err))
		if kind == "" {
			kind = string(provider.KindConnection)
		}
		metrics.RecordFetchFailure(name, kind)
		l.errs.Add(1)
		logger.Warn("fetch failed",
			"symbol", symbol,
			"provider", name,
			"kind", kind,
			"err", err,
		)
		return fetchResult{feed: feed, src: name, err: err}
	}

	metrics.RecordFetch(name, symbol, time.Since(time.Unix(obs.Timestamp, 0)))
	return fetchResult{feed: feed, src: name, obs: obs}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSaved
	outcomePartial
	outcomeFailed
)

func (l *Loop) processFeed(ctx context.Context, logger *slog.Logger, feed Feed, results []fetchResult) outcome {
	observations := make([]model.Observation, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		observations = append(observations, r.obs)
	}

	if failed > 0 && (!l.cfg.AllowPartial || len(observations) == 0) {
		l.skip(feed.Symbol, SkipFetchFailed)
		logger.Debug("skipping feed after fetch failure",
			"symbol", feed.Symbol,
			"failed", failed,
			"sources", len(results),
		)
		return outcomeSkipped
	}

	cons, ok := l.policy.Aggregate(observations)
	if !ok {
		l.skip(feed.Symbol, SkipNoConsensus)
		logger.Debug("no consensus", "symbol", feed.Symbol, "observations", len(observations))
		return outcomeSkipped
	}
	metrics.RecordConsensus(feed.Symbol, l.policy.Name(), cons.Price)

	saveCtx, cancel := context.WithTimeout(ctx, l.cfg.SaveTimeout)
	defer cancel()

	if err := l.saver.Save(saveCtx, cons); err != nil {
		l.errs.Add(1)
		tiers := store.FailedTiers(err)
		for _, tier := range tiers {
			metrics.RecordPersistFailure(string(tier))
		}
		logger.Error("failed to save consensus",
			"symbol", feed.Symbol,
			"price", cons.Price,
			"err", err,
		)
		if len(tiers) == 1 {
			return outcomePartial
		}
		return outcomeFailed
	}

	l.saved.Add(1)
	logger.Debug("saved consensus",
		"symbol", feed.Symbol,
		"price", cons.Price,
		"confidence", cons.Confidence,
		"source", cons.Source,
		"inputs", len(observations),
	)
	return outcomeSaved
}

func (l *Loop) skip(symbol, reason string) {
	l.skipped.Add(1)
	metrics.RecordSkip(symbol, reason)
}
