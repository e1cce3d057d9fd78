// Package model defines the price observation shared across the oracle.
//
// Conventions:
//   - Prices and confidences: float64 in quote currency units
//   - Confidence: width of the ± interval around Price (smaller = more trusted)
//   - Timestamps: int64 seconds since Unix epoch
//   - Source: upstream provider name, or a reserved tag for derived records
package model
