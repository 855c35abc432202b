package gateway

import (
	"time"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
)

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// AuthToken, when set, is the bearer token required on every /v1 route.
	AuthToken string

	// Heartbeat is the interval between SSE keep-alive comments on an open
	// stream. Zero disables keep-alives.
	Heartbeat time.Duration

	// Publisher receives an event for every stored turn. Nil disables events.
	Publisher eventstream.Publisher

	// Workers and QueueSize size the turn persistence pool. Zero values use
	// the pool defaults.
	Workers   uint
	QueueSize uint
}
