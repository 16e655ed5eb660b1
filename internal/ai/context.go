package ai

import "sync"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultHistory is how many chat turns are kept.
const DefaultHistory = 20

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// ConversationContext holds the chat history on the client side. The first
// turn is kept when trimming since it usually frames the conversation.
type ConversationContext struct {
	mu       sync.Mutex
	messages []Message
	limit    int
}

// NewConversationContext returns an empty history capped at limit turns
// (DefaultHistory when limit < 2).
func NewConversationContext(limit int) *ConversationContext {
	if limit < 2 {
		limit = DefaultHistory
	}
	return &ConversationContext{limit: limit}
}

// Add appends a turn, dropping the oldest turns after the first once the
// limit is exceeded.
func (c *ConversationContext) Add(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{Role: role, Content: content})
	if over := len(c.messages) - c.limit; over > 0 {
		c.messages = append(c.messages[:1], c.messages[1+over:]...)
	}
}

// Messages returns a copy of the history.
func (c *ConversationContext) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset clears the history.
func (c *ConversationContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
}

// Len returns the number of turns held.
func (c *ConversationContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.messages)
}
