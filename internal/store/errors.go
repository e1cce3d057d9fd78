package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetLatest when no live observation exists.
var ErrNotFound = errors.New("price not found")

// Tier names a persistence backend.
type Tier string

const (
	TierHistory Tier = "history"
	TierCache   Tier = "cache"
)

// PersistError reports a failed write to one tier.
type PersistError struct {
	Tier Tier
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Tier, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// FailedTiers lists the tiers that failed in an error returned by Save.
func FailedTiers(err error) []Tier {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else if err != nil {
		errs = []error{err}
	}

	var tiers []Tier
	for _, e := range errs {
		var pe *PersistError
		if errors.As(e, &pe) {
			tiers = append(tiers, pe.Tier)
		}
	}
	return tiers
}
