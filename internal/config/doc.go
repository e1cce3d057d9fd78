// Package config handles YAML configuration loading with environment variable substitution.
//
// Load order:
//   - .env in the working directory, if present (never overrides the real environment)
//   - YAML file with ${VAR} interpolation
//   - well-known environment overrides (DATABASE_URL, REDIS_URL, ...)
//   - defaults for anything still unset
//   - Validate
//
// With no file at all the service reads SOL from the Pyth devnet account.
package config
