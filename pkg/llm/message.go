package llm

import "time"

// Roles recognised in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single message in a conversation.
// Once appended to a history a Message is treated as immutable; the only
// entry that changes is the in-flight assistant message of a streaming turn,
// whose Content is replaced wholesale on every chunk.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, content string) Message {
	return Message{
		Role:    role,
		Content: content,
	}
}

// IsEmpty reports whether the message carries no content at all.
func (m *Message) IsEmpty() bool {
	return m.Content == ""
}
