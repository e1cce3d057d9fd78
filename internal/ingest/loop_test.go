package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/oracle-consensus/internal/config"
	"github.com/rickgao/oracle-consensus/internal/consensus"
	"github.com/rickgao/oracle-consensus/internal/model"
	"github.com/rickgao/oracle-consensus/internal/provider"
	"github.com/rickgao/oracle-consensus/internal/store"
)

// fakeProvider returns a fixed observation or error.
type fakeProvider struct {
	name  string
	price float64
	conf  float64
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.Observation{}, &provider.FetchError{Provider: f.name, Kind: provider.KindConnection, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return model.Observation{}, f.err
	}
	return model.Observation{
		Symbol:     symbol,
		Price:      f.price,
		Confidence: f.conf,
		Timestamp:  time.Now().Unix(),
		Source:     f.name,
	}, nil
}

// fakeSaver records saved observations.
type fakeSaver struct {
	mu    sync.Mutex
	saved []model.Observation
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, obs model.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, obs)
	return nil
}

func (f *fakeSaver) all() []model.Observation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Observation(nil), f.saved...)
}

func policy(t *testing.T, mode string) consensus.Policy {
	t.Helper()
	p, err := consensus.New(mode)
	require.NoError(t, err)
	return p
}

func feed(symbol string, providers ...provider.Provider) Feed {
	f := Feed{Symbol: symbol}
	for _, p := range providers {
		f.Sources = append(f.Sources, Source{Provider: p, FeedID: symbol + "-id"})
	}
	return f
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.FetchTimeout = time.Second
	cfg.SaveTimeout = time.Second
	return cfg
}

func TestRunCycle_WeightedResistsWideOutlier(t *testing.T) {
	honest := &fakeProvider{name: "pyth", price: 150, conf: 0.05}
	attacker := &fakeProvider{name: "attacker", price: 200, conf: 5}
	saver := &fakeSaver{}

	l := New(testConfig(), []Feed{feed("SOL", honest, attacker)}, policy(t, consensus.ModeWeighted), saver, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Saved)
	assert.NotEmpty(t, res.ID)

	saved := saver.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "SOL", saved[0].Symbol)
	assert.Equal(t, model.SourceWeightedConsensus, saved[0].Source)
	assert.InDelta(t, 150.495, saved[0].Price, 0.001)
	assert.Less(t, math.Abs(saved[0].Price-150), 1.0)
}

func TestRunCycle_MedianOfThree(t *testing.T) {
	saver := &fakeSaver{}
	feeds := []Feed{feed("ETH",
		&fakeProvider{name: "a", price: 3000, conf: 1},
		&fakeProvider{name: "b", price: 3010, conf: 1},
		&fakeProvider{name: "c", price: 9000, conf: 1},
	)}

	l := New(testConfig(), feeds, policy(t, consensus.ModeMedian), saver, nil)
	l.RunCycle(context.Background())

	saved := saver.all()
	require.Len(t, saved, 1)
	assert.Equal(t, 3010.0, saved[0].Price)
	assert.Equal(t, model.SourceConsensus, saved[0].Source)
}

func TestRunCycle_SkipsFeedOnFetchFailure(t *testing.T) {
	ok := &fakeProvider{name: "ok", price: 100, conf: 1}
	bad := &fakeProvider{name: "bad", err: &provider.FetchError{Provider: "bad", Kind: provider.KindConnection, Err: errors.New("refused")}}
	saver := &fakeSaver{}

	feeds := []Feed{
		feed("SOL", ok, bad),
		feed("BTC", &fakeProvider{name: "ok2", price: 60000, conf: 10}),
	}
	l := New(testConfig(), feeds, policy(t, consensus.ModeMedian), saver, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Skipped)

	saved := saver.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "BTC", saved[0].Symbol)

	stats := l.Stats()
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(1), stats.Errors)
}

func TestRunCycle_AllowPartial(t *testing.T) {
	ok := &fakeProvider{name: "ok", price: 100, conf: 1}
	bad := &fakeProvider{name: "bad", err: errors.New("boom")}
	saver := &fakeSaver{}

	cfg := testConfig()
	cfg.AllowPartial = true
	l := New(cfg, []Feed{feed("SOL", ok, bad)}, policy(t, consensus.ModeMedian), saver, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Saved)
	saved := saver.all()
	require.Len(t, saved, 1)
	assert.Equal(t, 100.0, saved[0].Price)
}

func TestRunCycle_AllowPartialWithNothingFetched(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: errors.New("boom")}
	saver := &fakeSaver{}

	cfg := testConfig()
	cfg.AllowPartial = true
	l := New(cfg, []Feed{feed("SOL", bad)}, policy(t, consensus.ModeMedian), saver, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Skipped)
	assert.True(t, res.AllFailed())
	assert.Empty(t, saver.all())
}

func TestRunCycle_NoConsensusSavesNothing(t *testing.T) {
	// Zero confidence is excluded by the weighted policy.
	saver := &fakeSaver{}
	feeds := []Feed{feed("SOL", &fakeProvider{name: "a", price: 100, conf: 0})}

	l := New(testConfig(), feeds, policy(t, consensus.ModeWeighted), saver, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, saver.all())
}

func TestRunCycle_FetchTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", price: 100, conf: 1, delay: time.Second}
	saver := &fakeSaver{}

	cfg := testConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	l := New(cfg, []Feed{feed("SOL", slow)}, policy(t, consensus.ModeMedian), saver, nil)

	start := time.Now()
	res := l.RunCycle(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, saver.all())
}

func TestRunCycle_SaveFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		partial int
		failed  int
	}{
		{
			name:    "cache only",
			err:     errors.Join(&store.PersistError{Tier: store.TierCache, Err: errors.New("down")}),
			partial: 1,
		},
		{
			name: "both tiers",
			err: errors.Join(
				&store.PersistError{Tier: store.TierHistory, Err: errors.New("down")},
				&store.PersistError{Tier: store.TierCache, Err: errors.New("down")},
			),
			failed: 1,
		},
		{
			name:   "unclassified",
			err:    context.DeadlineExceeded,
			failed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &fakeSaver{err: tt.err}
			feeds := []Feed{feed("SOL", &fakeProvider{name: "a", price: 100, conf: 1})}

			l := New(testConfig(), feeds, policy(t, consensus.ModeMedian), saver, nil)
			res := l.RunCycle(context.Background())

			assert.Equal(t, 0, res.Saved)
			assert.Equal(t, tt.partial, res.Partial)
			assert.Equal(t, tt.failed, res.Failed)
		})
	}
}

func TestRunCycle_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	track := func(p *fakeProvider) provider.Provider {
		return trackingProvider{fakeProvider: p, inFlight: &inFlight, peak: &peak}
	}

	var providers []provider.Provider
	for i := range 8 {
		providers = append(providers, track(&fakeProvider{name: fmt.Sprintf("p%d", i), price: 100, conf: 1, delay: 10 * time.Millisecond}))
	}

	cfg := testConfig()
	cfg.Concurrency = 2
	l := New(cfg, []Feed{feed("SOL", providers...)}, policy(t, consensus.ModeMedian), &fakeSaver{}, nil)
	res := l.RunCycle(context.Background())

	assert.Equal(t, 1, res.Saved)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type trackingProvider struct {
	*fakeProvider
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (p trackingProvider) Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	return p.fakeProvider.Fetch(ctx, symbol, feedID)
}

func TestLoop_StartStop(t *testing.T) {
	src := &fakeProvider{name: "a", price: 100, conf: 1}
	saver := &fakeSaver{}

	cfg := testConfig()
	cfg.Interval = 10 * time.Millisecond
	l := New(cfg, []Feed{feed("SOL", src)}, policy(t, consensus.ModeMedian), saver, nil)

	require.NoError(t, l.Start(context.Background()))

	require.Eventually(t, func() bool {
		return len(saver.all()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))

	cycles := l.Stats().Cycles
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, cycles, l.Stats().Cycles, "no cycles after Stop")
}

func TestLoop_FirstCycleRunsImmediately(t *testing.T) {
	saver := &fakeSaver{}
	l := New(testConfig(), []Feed{feed("SOL", &fakeProvider{name: "a", price: 1, conf: 1})}, policy(t, consensus.ModeMedian), saver, nil)

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop(context.Background())

	require.Eventually(t, func() bool {
		return len(saver.all()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLoop_StopFinishesCycleInFlight(t *testing.T) {
	slow := &fakeProvider{name: "slow", price: 100, conf: 1, delay: 100 * time.Millisecond}
	saver := &fakeSaver{}

	l := New(testConfig(), []Feed{feed("SOL", slow)}, policy(t, consensus.ModeMedian), saver, nil)
	require.NoError(t, l.Start(context.Background()))

	require.Eventually(t, func() bool { return slow.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx))

	assert.Len(t, saver.all(), 1)
}

func TestLoop_BackoffWhenAllFeedsFail(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: errors.New("down")}

	cfg := testConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Backoff = BackoffConfig{Enabled: true, MaxInterval: time.Hour}
	l := New(cfg, []Feed{feed("SOL", bad)}, policy(t, consensus.ModeMedian), &fakeSaver{}, nil)

	require.NoError(t, l.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, l.Stop(context.Background()))

	// Without backoff this would be ~15 cycles; growing delays keep it well below.
	assert.Less(t, l.Stats().Cycles, int64(12))
	assert.GreaterOrEqual(t, l.Stats().Cycles, int64(2))
}

func TestNew_AppliesDefaults(t *testing.T) {
	l := New(Config{}, nil, policy(t, consensus.ModeMedian), &fakeSaver{}, nil)
	def := DefaultConfig()

	assert.Equal(t, def.Interval, l.cfg.Interval)
	assert.Equal(t, def.FetchTimeout, l.cfg.FetchTimeout)
	assert.Equal(t, def.SaveTimeout, l.cfg.SaveTimeout)
	assert.Equal(t, def.Concurrency, l.cfg.Concurrency)
	assert.GreaterOrEqual(t, l.cfg.Backoff.MaxInterval, l.cfg.Interval)
}

func TestBuildFeeds(t *testing.T) {
	pyth := provider.NewStatic("pyth", 150, 0.05)
	attacker := provider.NewStatic("attacker", 200, 5)
	reg := provider.NewRegistry(nil, pyth, attacker)

	feeds, err := BuildFeeds([]config.FeedConfig{{
		Symbol: "SOL",
		Sources: []config.SourceConfig{
			{Provider: "pyth", FeedID: "acct"},
			{Provider: "attacker"},
		},
	}}, reg)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	require.Len(t, feeds[0].Sources, 2)
	assert.Equal(t, "pyth", feeds[0].Sources[0].Provider.Name())
	assert.Equal(t, "acct", feeds[0].Sources[0].FeedID)

	_, err = BuildFeeds([]config.FeedConfig{{
		Symbol:  "SOL",
		Sources: []config.SourceConfig{{Provider: "missing"}},
	}}, reg)
	assert.ErrorContains(t, err, `unknown provider "missing"`)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.IngestConfig{
		Interval:     2 * time.Second,
		FetchTimeout: time.Second,
		SaveTimeout:  3 * time.Second,
		Concurrency:  8,
		AllowPartial: true,
		Backoff:      config.BackoffConfig{Enabled: true, MaxInterval: time.Minute},
	})

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.AllowPartial)
	assert.True(t, cfg.Backoff.Enabled)
	assert.Equal(t, time.Minute, cfg.Backoff.MaxInterval)
}
