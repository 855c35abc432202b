package llm

const (
	// DefaultMaxTokens is applied when a request does not set MaxTokens.
	DefaultMaxTokens = 1000

	// DefaultTemperature is applied when a request does not set Temperature.
	DefaultTemperature = 0.7
)

// ChatRequest represents a provider-agnostic chat completion request.
// It is the normalized shape the gateway receives from clients and hands to
// provider adapters, which translate it into their own wire format.
type ChatRequest struct {
	// Conversation messages, ordered oldest to newest
	Messages []Message `json:"messages"`

	// Model name (e.g., "gpt-4o", "claude-3-5-sonnet-20241022").
	// Optional: used to resolve a provider when Provider is empty.
	Model string `json:"model,omitempty"`

	// Provider explicitly selects an adapter by id (e.g., "anthropic").
	Provider string `json:"provider,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// GetMaxTokens returns MaxTokens or DefaultMaxTokens when unset.
func (r *ChatRequest) GetMaxTokens() int {
	if r.MaxTokens == nil || *r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return *r.MaxTokens
}

// GetTemperature returns Temperature or DefaultTemperature when unset.
func (r *ChatRequest) GetTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// NonEmptyMessages returns the request messages with zero-length content
// filtered out. Upstream APIs reject empty content in different ways, so
// adapters forward only what this returns.
func (r *ChatRequest) NonEmptyMessages() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.IsEmpty() {
			continue
		}
		out = append(out, m)
	}
	return out
}
