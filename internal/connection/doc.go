// Package connection wraps a single websocket to the Hermes streaming
// endpoint (wss://hermes.pyth.network/ws).
//
// The client:
//   - Dials with an optional bearer token
//   - Answers server pings and sends its own keepalive pings
//   - Stamps every inbound frame with a local receive time
//   - Reports read failures and stale connections on Errors()
//
// Reconnection is the caller's job; a Client is single use.
package connection
