package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// Adapter type names used in configuration.
const (
	TypePyth         = "pyth"
	TypeHermes       = "hermes"
	TypeHermesStream = "hermes_stream"
	TypeStatic       = "static"
)

// Provider fetches the current observation for one feed.
type Provider interface {
	// Name is the configured provider name; it becomes Observation.Source.
	Name() string

	// Fetch returns the latest observation for symbol from the feed
	// identified by feedID, or a *FetchError.
	Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error)
}

// newObservation scales fixed-point values and validates the result.
func newObservation(source, symbol string, price, conf decimal.Decimal, publishTime int64) (model.Observation, error) {
	p, _ := price.Float64()
	c, _ := conf.Float64()

	obs := model.Observation{
		Symbol:     symbol,
		Price:      p,
		Confidence: c,
		Timestamp:  publishTime,
		Source:     source,
	}
	if err := obs.Validate(); err != nil {
		return model.Observation{}, decodeError(source, fmt.Errorf("invalid observation: %w", err))
	}
	return obs, nil
}
