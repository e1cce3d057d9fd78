// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Observations fetched and fetch failures per provider
//   - Latest consensus price and skipped cycles per symbol
//   - Persistence failures per tier
//   - Ingest cycle duration
//   - Query API request counts and latencies
package metrics
