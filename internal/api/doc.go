// Package api provides a REST client for the Pyth Hermes price service.
//
// Endpoints:
//   - Stable: https://hermes.pyth.network
//   - Beta: https://hermes-beta.pyth.network
//
// Only the latest-price endpoint is used:
//   - GET /v2/updates/price/latest?ids[]=<feed id>&parsed=true
//
// Prices are fixed-point integers encoded as decimal strings with a
// shared exponent; ToDecimal converts them without float rounding.
package api
