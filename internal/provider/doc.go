// Package provider fetches raw price observations from external oracle
// sources and normalizes them into model.Observation values.
//
// Adapters:
//   - pyth: Pyth v2 price account read over Solana JSON-RPC
//   - hermes: Pyth Hermes REST latest-price endpoint
//   - hermes_stream: Pyth Hermes websocket, latest value per feed
//   - static: fixed price and confidence, stamped with the current time
//
// Every adapter returns either a validated observation or a *FetchError
// classified as connection, decode or not-found. A failed fetch never
// produces a placeholder observation.
package provider
