// Package server exposes the latest consensus prices over HTTP.
//
// Routes:
//   - GET /oracle/price/{symbol}: latest live observation for symbol
//   - GET /health: status of the history and cache tiers
package server
