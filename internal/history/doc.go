// Package history writes consensus observations to the append-only
// price_history table in PostgreSQL.
//
// Table layout:
//   - id uuid primary key, generated per row
//   - symbol, source text
//   - price, confidence numeric
//   - timestamp bigint (publish time, Unix seconds)
//   - recorded_at timestamptz (insert time)
//
// Rows are never updated or deleted by this service.
package history
