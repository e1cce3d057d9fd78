package consensus

import (
	"sort"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// MedianPolicy takes the median price of all observations with a finite
// price. Stated confidence is not used for selection.
type MedianPolicy struct{}

// Ensure MedianPolicy implements Policy.
var _ Policy = MedianPolicy{}

// Name returns ModeMedian.
func (MedianPolicy) Name() string { return ModeMedian }

// Aggregate implements Policy.
func (MedianPolicy) Aggregate(obs []model.Observation) (model.Observation, bool) {
	return Median(obs)
}

// midpoint halves before adding so two large finite prices cannot
// overflow.
func midpoint(a, b float64) float64 {
	return a/2 + b/2
}

// Median computes the median consensus.
//
// The valid set is stable-sorted by price, so equal prices keep their
// input order. For an even count the price is the mean of the two middle
// prices; confidence and timestamp always come from index n/2.
func Median(obs []model.Observation) (model.Observation, bool) {
	valid := filter(obs, finitePrice)
	n := len(valid)
	if n == 0 {
		return model.Observation{}, false
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Price < valid[j].Price
	})

	mid := valid[n/2]
	price := mid.Price
	if n%2 == 0 {
		price = midpoint(valid[n/2-1].Price, mid.Price)
	}

	return model.Observation{
		Symbol:     valid[0].Symbol,
		Price:      price,
		Confidence: mid.Confidence,
		Timestamp:  mid.Timestamp,
		Source:     model.SourceConsensus,
	}, true
}
