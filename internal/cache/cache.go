package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a symbol has no live entry.
var ErrNotFound = errors.New("cache: not found")

// KeyPrefix is prepended to the symbol to form the cache key.
const KeyPrefix = "price:"

// Key returns the cache key for symbol.
func Key(symbol string) string {
	return fmt.Sprintf("%s%s", KeyPrefix, symbol)
}
