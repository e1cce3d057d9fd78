package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/oracle-consensus/internal/version"
)

// Public Hermes endpoints.
const (
	StableURL = "https://hermes.pyth.network"
	BetaURL   = "https://hermes-beta.pyth.network"
)

// Client defaults. Hermes answers latest-price queries well under a
// second; the ingest fetch timeout is the outer bound.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 200 * time.Millisecond
)

// Client queries the Hermes price service.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	hc        *http.Client
	logger    *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a Hermes client. An empty baseURL selects StableURL.
// apiKey is optional; hosted endpoints accept it as a bearer token.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = StableURL
	}

	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		userAgent:    "oracle-consensus/" + version.Version,
		hc:           &http.Client{Timeout: DefaultTimeout},
		logger:       slog.Default(),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// WithTimeout bounds each HTTP attempt. Non-positive values keep the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithRetries sets how often 429 and 5xx responses are retried and the
// first backoff delay. Negative counts disable retries.
func WithRetries(n int, initial time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max(n, 0)
		if initial > 0 {
			c.retryBackoff = initial
		}
	}
}

// WithLogger sets the logger; nil keeps the default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the transport, e.g. with an httptest client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
