package api

import (
	"context"
	"net/url"
)

// GetLatestPrices fetches the most recent parsed update for each feed id.
func (c *Client) GetLatestPrices(ctx context.Context, ids ...string) (*LatestPriceResponse, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("ids[]", id)
	}
	query.Set("parsed", "true")

	var resp LatestPriceResponse
	if err := c.get(ctx, "/v2/updates/price/latest", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLatestPrice fetches a single feed. The second return value is false
// when Hermes answered without an entry for the id.
func (c *Client) GetLatestPrice(ctx context.Context, id string) (ParsedFeed, bool, error) {
	resp, err := c.GetLatestPrices(ctx, id)
	if err != nil {
		return ParsedFeed{}, false, err
	}

	want := NormalizeFeedID(id)
	for _, feed := range resp.Parsed {
		if NormalizeFeedID(feed.ID) == want {
			return feed, true, nil
		}
	}
	return ParsedFeed{}, false, nil
}
