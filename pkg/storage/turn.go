package storage

import (
	"time"

	"github.com/papercomputeco/chatgate/pkg/llm"
)

// Turn is one completed request/response exchange through the gateway.
type Turn struct {
	ID           string        `json:"id"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Messages     []llm.Message `json:"messages"`
	Content      string        `json:"content"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *llm.Usage    `json:"usage,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	CreatedAt    time.Time     `json:"created_at"`
}
