// Package cache holds the latest consensus observation per symbol with a
// time-to-live, so readers never see a price older than the TTL.
//
// Backends:
//   - Redis: key price:{symbol}, JSON value, SET ... EX ttl
//   - Memory: in-process ttlcache, for single-node runs and tests
package cache
