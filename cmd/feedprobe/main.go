// feedprobe fetches one observation from every configured source and
// prints them with the median and weighted consensus of each feed.
// Nothing is persisted.
//
// Usage: go run ./cmd/feedprobe --config configs/oracle.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/oracle-consensus/internal/config"
	"github.com/rickgao/oracle-consensus/internal/consensus"
	"github.com/rickgao/oracle-consensus/internal/ingest"
	"github.com/rickgao/oracle-consensus/internal/model"
	"github.com/rickgao/oracle-consensus/internal/provider"
)

type failure struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

type report struct {
	Symbol       string                        `json:"symbol"`
	Observations []model.Observation           `json:"observations"`
	Failures     []failure                     `json:"failures,omitempty"`
	Consensus    map[string]*model.Observation `json:"consensus"`
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	symbol := flag.String("symbol", "", "only probe this symbol")
	timeout := flag.Duration("timeout", 5*time.Second, "per-fetch timeout")
	warmup := flag.Duration("warmup", 3*time.Second, "time to let streaming providers receive a first update")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	_ = config.LoadDotEnv()
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := provider.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build providers", "error", err)
		os.Exit(1)
	}
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start providers", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		registry.Stop(stopCtx)
	}()

	feeds, err := ingest.BuildFeeds(cfg.Feeds, registry)
	if err != nil {
		logger.Error("failed to bind feeds", "error", err)
		os.Exit(1)
	}

	if hasStream(cfg) && *warmup > 0 {
		logger.Info("waiting for stream warmup", "duration", *warmup)
		select {
		case <-time.After(*warmup):
		case <-ctx.Done():
			return
		}
	}

	policies := make([]consensus.Policy, 0, 2)
	for _, mode := range consensus.Modes() {
		p, err := consensus.New(mode)
		if err != nil {
			logger.Error("unknown policy", "mode", mode, "error", err)
			os.Exit(1)
		}
		policies = append(policies, p)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, feed := range feeds {
		if *symbol != "" && feed.Symbol != *symbol {
			continue
		}
		r := probe(ctx, feed, policies, *timeout)
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
	}
}

func probe(ctx context.Context, feed ingest.Feed, policies []consensus.Policy, timeout time.Duration) report {
	r := report{
		Symbol:       feed.Symbol,
		Observations: []model.Observation{},
		Consensus:    make(map[string]*model.Observation, len(policies)),
	}

	for _, src := range feed.Sources {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		obs, err := src.Provider.Fetch(fetchCtx, feed.Symbol, src.FeedID)
		cancel()
		if err != nil {
			r.Failures = append(r.Failures, failure{
				Provider: src.Provider.Name(),
				Kind:     string(provider.KindOf(err)),
				Error:    err.Error(),
			})
			continue
		}
		r.Observations = append(r.Observations, obs)
	}

	for _, p := range policies {
		if cons, ok := p.Aggregate(r.Observations); ok {
			r.Consensus[p.Name()] = &cons
		} else {
			r.Consensus[p.Name()] = nil
		}
	}
	return r
}

func hasStream(cfg *config.Config) bool {
	for _, pc := range cfg.Providers {
		if pc.Type == provider.TypeHermesStream {
			return true
		}
	}
	return false
}
