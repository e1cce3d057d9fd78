// Package store persists consensus observations to two tiers and serves
// the latest one back.
//
// Save writes the append-only history and the TTL cache concurrently;
// GetLatest reads only the cache, so an expired or never-written symbol
// is reported as not found even if history holds older rows.
package store
