// Package provider
package provider

import (
	"context"

	"github.com/papercomputeco/chatgate/pkg/llm"
)

// EmitFunc receives each normalized Chunk in emission order. A non-nil error
// means the downstream consumer is gone and the adapter must stop streaming.
type EmitFunc func(llm.Chunk) error

// KeyFunc returns the current credential for a provider. It is read at call
// time so rotated keys take effect without rebuilding adapters.
// An empty string means no credential is configured.
type KeyFunc func() string

// StaticKey returns a KeyFunc that always yields key.
func StaticKey(key string) KeyFunc {
	return func() string { return key }
}

// Adapter translates the normalized chat request into one upstream provider's
// streaming wire protocol and emits provider-agnostic Chunks.
//
// Adapters hold no per-call state: all accumulation happens in a value
// allocated at the start of each Stream call, so one Adapter is safely shared
// across concurrent requests.
type Adapter interface {
	// Name returns the canonical provider id (e.g., "anthropic", "openai", "azure")
	Name() string

	// SupportedModels returns the static list of model names this adapter serves.
	SupportedModels() []string

	// Stream opens exactly one upstream connection and emits text Chunks
	// followed by exactly one done Chunk. It returns the Completion on
	// success, or a non-nil error on failure; never both.
	// The upstream connection is released on every return path.
	Stream(ctx context.Context, req *llm.ChatRequest, emit EmitFunc) (*llm.Completion, error)

	// HealthCheck reports liveness. When credentials are absent it returns
	// an error status immediately without touching the network.
	HealthCheck(ctx context.Context) llm.Health
}
