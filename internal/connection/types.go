package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Message types sent and received on the Hermes stream.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeResponse    = "response"
	TypePriceUpdate = "price_update"
)

// SubscriptionRequest subscribes or unsubscribes a set of feed ids.
type SubscriptionRequest struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// Envelope is decoded first to dispatch on Type.
type Envelope struct {
	Type string `json:"type"`
}

// Response acknowledges a subscription request.
type Response struct {
	Type   string `json:"type"`
	Status string `json:"status"` // "success" or "error"
	Error  string `json:"error,omitempty"`
}

// PriceUpdate carries one feed's latest price.
type PriceUpdate struct {
	Type      string    `json:"type"`
	PriceFeed PriceFeed `json:"price_feed"`
}

// PriceFeed mirrors the REST parsed feed shape.
type PriceFeed struct {
	ID       string     `json:"id"`
	Price    PriceValue `json:"price"`
	EMAPrice PriceValue `json:"ema_price"`
}

// PriceValue is a fixed-point price: value = Price * 10^Expo.
type PriceValue struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// EncodeRequest builds a subscribe or unsubscribe frame for ids.
func EncodeRequest(kind string, ids []string) ([]byte, error) {
	return json.Marshal(SubscriptionRequest{Type: kind, IDs: ids})
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL               string        // WebSocket URL (e.g., wss://hermes.pyth.network/ws)
	APIKey            string        // Optional bearer token
	PingTimeout       time.Duration // Max time without ping/pong before considering connection stale
	HeartbeatInterval time.Duration // How often we send keepalive pings
	WriteTimeout      time.Duration // Write deadline for sends
	BufferSize        int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:       60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1024,
	}
}
