package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickgao/oracle-consensus/internal/api"
	"github.com/rickgao/oracle-consensus/internal/model"
)

// Hermes reads the latest parsed price from the Hermes REST API. feedID
// is the hex price feed id, with or without 0x.
type Hermes struct {
	name   string
	client *api.Client
}

// NewHermes creates a Hermes REST provider.
func NewHermes(name string, client *api.Client) *Hermes {
	return &Hermes{name: name, client: client}
}

// Name implements Provider.
func (h *Hermes) Name() string { return h.name }

// Fetch implements Provider.
func (h *Hermes) Fetch(ctx context.Context, symbol, feedID string) (model.Observation, error) {
	feed, ok, err := h.client.GetLatestPrice(ctx, feedID)
	if err != nil {
		var decErr *api.DecodeError
		switch {
		case api.IsNotFound(err):
			return model.Observation{}, notFoundError(h.name, err)
		case errors.As(err, &decErr):
			return model.Observation{}, decodeError(h.name, err)
		default:
			return model.Observation{}, connectionError(h.name, err)
		}
	}
	if !ok {
		return model.Observation{}, notFoundError(h.name, fmt.Errorf("feed %s not in response", feedID))
	}

	price, conf, err := feed.Price.ToDecimal()
	if err != nil {
		return model.Observation{}, decodeError(h.name, err)
	}
	return newObservation(h.name, symbol, price, conf, feed.Price.PublishTime)
}
