package api

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LatestPriceResponse from GET /v2/updates/price/latest
type LatestPriceResponse struct {
	Binary BinaryUpdate `json:"binary"`
	Parsed []ParsedFeed `json:"parsed"`
}

// BinaryUpdate carries the signed update blob. It is not verified here.
type BinaryUpdate struct {
	Encoding string   `json:"encoding"`
	Data     []string `json:"data"`
}

// ParsedFeed is one feed entry of a parsed update.
type ParsedFeed struct {
	ID       string    `json:"id"`
	Price    PriceData `json:"price"`
	EMAPrice PriceData `json:"ema_price"`
}

// PriceData is a fixed-point price: value = Price * 10^Expo.
type PriceData struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// ToDecimal returns the price and confidence scaled by the exponent.
func (p PriceData) ToDecimal() (price, conf decimal.Decimal, err error) {
	rawPrice, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse price %q: %w", p.Price, err)
	}
	rawConf, err := decimal.NewFromString(p.Conf)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse conf %q: %w", p.Conf, err)
	}
	return rawPrice.Shift(p.Expo), rawConf.Shift(p.Expo), nil
}

// NormalizeFeedID strips an optional 0x prefix and lowercases the id.
// Hermes returns ids without the prefix.
func NormalizeFeedID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
	return strings.ToLower(id)
}
