// Package ingest implements the periodic ingestion loop.
//
// Each cycle, for every configured feed:
//   - fetches one observation from each source concurrently, each under its own timeout
//   - skips the feed for this cycle if any source failed (unless partial input is allowed)
//   - runs the consensus policy; no consensus means nothing is saved
//   - saves the consensus observation under a save timeout
//
// Errors are logged and counted, never fatal. The loop runs until its
// context is cancelled or Stop is called; a cycle in flight is allowed
// to finish.
package ingest
