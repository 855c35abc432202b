package llm

// Completion is the terminal result of a successful streaming turn, handed to
// OnComplete after the final "done" chunk has been emitted.
type Completion struct {
	// ID matches the id carried by every chunk of the turn
	ID string `json:"id"`

	// Content is the final cumulative text
	Content string `json:"content"`

	// Model that generated the response, when the upstream reports it
	Model string `json:"model,omitempty"`

	// Provider is the id of the adapter that served the turn
	Provider string `json:"provider,omitempty"`

	// FinishReason as reported upstream (e.g., "stop", "end_turn", "length").
	// Empty when the upstream closed without an explicit finish signal.
	FinishReason string `json:"finishReason,omitempty"`

	// Usage is only present when the provider returned token counts.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts as returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Health statuses reported by adapters.
const (
	HealthOK    = "ok"
	HealthError = "error"
)

// Health is an ephemeral, on-demand view of one adapter's availability.
type Health struct {
	Status string   `json:"status"`
	Models []string `json:"models"`

	// Error describes why Status is "error", when known.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the JSON body returned for non-streaming failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
