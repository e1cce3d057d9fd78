package consensus

import (
	"fmt"
	"strings"

	"github.com/rickgao/oracle-consensus/internal/model"
)

const (
	// ModeMedian selects the median policy.
	ModeMedian = "median"
	// ModeWeighted selects the confidence-weighted average policy.
	ModeWeighted = "weighted"
)

// Policy turns a batch of observations for the same symbol into at most
// one consensus observation.
type Policy interface {
	// Name returns the policy mode name.
	Name() string

	// Aggregate returns the consensus and true, or false when no valid
	// input exists.
	Aggregate(obs []model.Observation) (model.Observation, bool)
}

// New returns the policy registered for mode.
func New(mode string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeMedian:
		return MedianPolicy{}, nil
	case ModeWeighted:
		return WeightedPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: median, weighted)", ErrUnknownMode, mode)
	}
}

// Modes lists the supported mode names.
func Modes() []string {
	return []string{ModeMedian, ModeWeighted}
}

// filter returns a fresh slice with the observations accepted by keep,
// preserving input order.
func filter(obs []model.Observation, keep func(model.Observation) bool) []model.Observation {
	valid := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if keep(o) {
			valid = append(valid, o)
		}
	}
	return valid
}

func finitePrice(o model.Observation) bool {
	return o.HasFinitePrice()
}

func finitePriceAndPositiveConfidence(o model.Observation) bool {
	return o.HasFinitePrice() && o.HasPositiveConfidence()
}
