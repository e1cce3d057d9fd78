package provider

import (
	"context"
	"time"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// Static always reports the same price and confidence, stamped with the
// current time. The feed id is ignored.
type Static struct {
	name       string
	price      float64
	confidence float64
	now        func() time.Time
}

// NewStatic creates a fixed-value provider.
func NewStatic(name string, price, confidence float64) *Static {
	return &Static{name: name, price: price, confidence: confidence, now: time.Now}
}

// Name implements Provider.
func (s *Static) Name() string { return s.name }

// Fetch implements Provider.
func (s *Static) Fetch(ctx context.Context, symbol, _ string) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return model.Observation{}, connectionError(s.name, err)
	}
	obs := model.Observation{
		Symbol:     symbol,
		Price:      s.price,
		Confidence: s.confidence,
		Timestamp:  s.now().Unix(),
		Source:     s.name,
	}
	if err := obs.Validate(); err != nil {
		return model.Observation{}, decodeError(s.name, err)
	}
	return obs, nil
}
