package provider

import (
	"context"
	"testing"

	"github.com/rickgao/oracle-consensus/internal/config"
)

func TestBuild(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{Name: "pyth", Type: TypePyth, URL: "https://api.devnet.solana.com"},
			{Name: "hermes", Type: TypeHermes, URL: "https://hermes.pyth.network", MaxRetries: 2},
			{Name: "stream", Type: TypeHermesStream, URL: "wss://hermes.pyth.network/ws"},
			{Name: "shadow", Type: TypeStatic, Price: 200, Confidence: 5},
		},
		Feeds: []config.FeedConfig{
			{Symbol: "SOL", Sources: []config.SourceConfig{
				{Provider: "stream", FeedID: "0xAA"},
				{Provider: "shadow"},
			}},
			{Symbol: "BTC", Sources: []config.SourceConfig{
				{Provider: "stream", FeedID: "bb"},
			}},
		},
	}

	reg, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"hermes", "pyth", "shadow", "stream"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	checks := map[string]func(Provider) bool{
		"pyth":   func(p Provider) bool { _, ok := p.(*PythAccount); return ok },
		"hermes": func(p Provider) bool { _, ok := p.(*Hermes); return ok },
		"shadow": func(p Provider) bool { _, ok := p.(*Static); return ok },
		"stream": func(p Provider) bool { _, ok := p.(*Stream); return ok },
	}
	for name, check := range checks {
		p, ok := reg.Get(name)
		if !ok || !check(p) || p.Name() != name {
			t.Errorf("provider %q has wrong type or name", name)
		}
	}

	p, _ := reg.Get("stream")
	stream := p.(*Stream)
	if len(stream.ids) != 2 || stream.ids[0] != "aa" || stream.ids[1] != "bb" {
		t.Errorf("stream ids = %v, want [aa bb]", stream.ids)
	}
}

func TestBuild_UnknownType(t *testing.T) {
	cfg := &config.Config{Providers: []config.ProviderConfig{{Name: "x", Type: "chainlink"}}}
	if _, err := Build(cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}

type lifecycleProvider struct {
	Static
	started, stopped bool
}

func (l *lifecycleProvider) Start(context.Context) error { l.started = true; return nil }
func (l *lifecycleProvider) Stop(context.Context) error { l.stopped = true; return nil }

func TestRegistry_Lifecycle(t *testing.T) {
	lp := &lifecycleProvider{Static: *NewStatic("live", 1, 1)}
	reg := NewRegistry(nil, lp, NewStatic("plain", 1, 1))

	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !lp.started {
		t.Error("lifecycle provider not started")
	}
	if err := reg.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !lp.stopped {
		t.Error("lifecycle provider not stopped")
	}
}
