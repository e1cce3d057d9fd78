package consensus

import (
	"math"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// WeightedPolicy averages prices with weight 1/confidence, so a source
// reporting a wide interval has little pull on the result even when its
// price is extreme.
type WeightedPolicy struct{}

// Ensure WeightedPolicy implements Policy.
var _ Policy = WeightedPolicy{}

// Name returns ModeWeighted.
func (WeightedPolicy) Name() string { return ModeWeighted }

// Aggregate implements Policy.
func (WeightedPolicy) Aggregate(obs []model.Observation) (model.Observation, bool) {
	return Weighted(obs)
}

// Weighted computes the confidence-weighted consensus.
//
// Observations with a non-finite price or a confidence that is not
// strictly positive are excluded. The reported confidence is the
// weighted mean of the input confidences. Symbol and timestamp come from
// the first valid observation in input order.
func Weighted(obs []model.Observation) (model.Observation, bool) {
	valid := filter(obs, finitePriceAndPositiveConfidence)
	if len(valid) == 0 {
		return model.Observation{}, false
	}

	first := valid[0]
	out := model.Observation{
		Symbol:     first.Symbol,
		Price:      first.Price,
		Confidence: first.Confidence,
		Timestamp:  first.Timestamp,
		Source:     model.SourceWeightedConsensus,
	}
	if len(valid) == 1 {
		return out, true
	}

	// Weights are 1/confidence scaled by the smallest confidence, so each
	// lies in (0, 1] and the tightest source weighs exactly 1. The sums
	// then use normalised fractions and stay within the input range.
	minConf := valid[0].Confidence
	for _, o := range valid[1:] {
		minConf = min(minConf, o.Confidence)
	}

	weights := make([]float64, len(valid))
	var total float64
	for i, o := range valid {
		weights[i] = minConf / o.Confidence
		total += weights[i]
	}

	var price, conf float64
	for i, o := range valid {
		frac := weights[i] / total
		price += o.Price * frac
		conf += o.Confidence * frac
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || math.IsNaN(conf) || math.IsInf(conf, 0) {
		return model.Observation{}, false
	}

	out.Price = price
	out.Confidence = conf
	return out, true
}
