// Package consensus combines several price observations for one symbol
// into a single derived observation.
//
// Policies:
//   - median: robust to one outlier by position, ignores stated confidence
//   - weighted: inverse-confidence weighted mean, down-weights wide intervals
//
// Every policy is a pure function of its input: no I/O, no logging, no
// mutation of the caller's slice. An empty valid set yields no result
// (ok == false) rather than an error.
package consensus
