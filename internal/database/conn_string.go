package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/oracle-consensus/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config. A
// configured URL is returned unchanged.
func BuildConnString(cfg config.DBConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	// URL-encode credentials to handle special characters
	userInfo := url.QueryEscape(cfg.User)
	if cfg.Password != "" {
		userInfo += ":" + url.QueryEscape(cfg.Password)
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		cfg.Host,
		port,
		cfg.Name,
		sslMode,
	)
}

// Redact hides the password of a connection URL for logging.
func Redact(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
