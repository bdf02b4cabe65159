package decision

import "sync"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the advisor.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the per-session chat history. With window 0 every past
// exchange is resent; with window n only the last n exchanges are.
type Conversation struct {
	mu      sync.Mutex
	system  string
	window  int
	history []Message
	pending bool
}

func NewConversation(systemPrompt string, window int) *Conversation {
	if window < 0 {
		window = 0
	}
	return &Conversation{system: systemPrompt, window: window}
}

// Begin appends a user turn and returns the messages to send. The turn stays
// pending until Commit or Rollback.
func (c *Conversation) Begin(user string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		c.history = c.history[:len(c.history)-1]
	}
	prior := c.history
	if c.window > 0 && len(prior) > 2*c.window {
		prior = prior[len(prior)-2*c.window:]
	}
	out := make([]Message, 0, len(prior)+2)
	if c.system != "" {
		out = append(out, Message{Role: RoleSystem, Content: c.system})
	}
	out = append(out, prior...)
	out = append(out, Message{Role: RoleUser, Content: user})

	c.history = append(c.history, Message{Role: RoleUser, Content: user})
	c.pending = true
	return out
}

// Commit records the assistant reply for the pending turn.
func (c *Conversation) Commit(reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return
	}
	c.history = append(c.history, Message{Role: RoleAssistant, Content: reply})
	c.pending = false
	if c.window > 0 && len(c.history) > 2*c.window {
		c.history = append([]Message(nil), c.history[len(c.history)-2*c.window:]...)
	}
}

// Rollback drops the pending user turn.
func (c *Conversation) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return
	}
	c.history = c.history[:len(c.history)-1]
	c.pending = false
}

// Len counts stored turns, excluding the system prompt.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}
