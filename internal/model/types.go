package model

import (
	"errors"
	"fmt"
	"math"
)

// Reserved source tags for derived (consensus) observations.
const (
	SourceConsensus         = "consensus"
	SourceWeightedConsensus = "weighted_consensus"
)

// Validation errors returned by Observation.Validate.
var (
	ErrEmptySymbol        = errors.New("symbol is empty")
	ErrNonFinitePrice     = errors.New("price is not finite")
	ErrInvalidConfidence  = errors.New("confidence must be finite and non-negative")
	ErrReservedSourceName = errors.New("source uses a reserved consensus tag")
)

// Observation is one price sample for a symbol plus its trust metadata.
// It is a value type; nothing in the oracle mutates an Observation after
// it has been handed to another component.
type Observation struct {
	Symbol     string  `json:"symbol"`     // Asset identifier (e.g. "SOL")
	Price      float64 `json:"price"`      // Asset value
	Confidence float64 `json:"confidence"` // ± interval width
	Timestamp  int64   `json:"timestamp"`  // Seconds since epoch
	Source     string  `json:"source"`     // Provider name or consensus tag
}

// HasFinitePrice reports whether Price is neither NaN nor ±Inf.
func (o Observation) HasFinitePrice() bool {
	return !math.IsNaN(o.Price) && !math.IsInf(o.Price, 0)
}

// HasPositiveConfidence reports whether Confidence is finite and > 0.
func (o Observation) HasPositiveConfidence() bool {
	return !math.IsNaN(o.Confidence) && !math.IsInf(o.Confidence, 0) && o.Confidence > 0
}

// IsDerived reports whether the observation was produced by aggregation.
func (o Observation) IsDerived() bool {
	return IsReservedSource(o.Source)
}

// IsReservedSource reports whether name is one of the consensus tags.
func IsReservedSource(name string) bool {
	return name == SourceConsensus || name == SourceWeightedConsensus
}

// Validate checks a raw observation as produced by a provider.
func (o Observation) Validate() error {
	if o.Symbol == "" {
		return ErrEmptySymbol
	}
	if !o.HasFinitePrice() {
		return fmt.Errorf("%w: %v", ErrNonFinitePrice, o.Price)
	}
	if math.IsNaN(o.Confidence) || math.IsInf(o.Confidence, 0) || o.Confidence < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, o.Confidence)
	}
	if o.IsDerived() {
		return fmt.Errorf("%w: %s", ErrReservedSourceName, o.Source)
	}
	return nil
}
