package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Reference is a document cited by an assistant reply
type Reference struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Message is one chat turn. Content only grows while the turn is streaming
// and is replaced wholesale by regeneration.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	References []Reference `json:"references,omitempty"`
}

// NewMessage creates a message with a fresh id stamped with the current time
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m Message) clone() Message {
	if m.References != nil {
		refs := make([]Reference, len(m.References))
		copy(refs, m.References)
		m.References = refs
	}
	return m
}

// Turn is the wire shape of a message sent to the chat and suggestion routes
type Turn struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Turns converts messages to their wire shape
func Turns(messages []Message) []Turn {
	turns := make([]Turn, len(messages))
	for i, m := range messages {
		turns[i] = Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}
