// Package chat provides a mutable multi-turn conversation that renders to a
// gateway payload on every turn.
package chat

import (
	"strings"

	"github.com/germanamz/modelgate/pkg/chats/message"
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/chats/role"
)

// Chat is a mutable conversation bound to one model. The zero value is ready
// to use once Model is set.
// Chat is not safe for concurrent use; callers must synchronize externally.
type Chat struct {
	Model    string
	Stream   bool
	Tools    map[string]bool
	messages []message.Message
}

// New creates a Chat for model, optionally opening with a system prompt.
func New(model, system string) *Chat {
	c := &Chat{Model: model}
	if strings.TrimSpace(system) != "" {
		c.messages = append(c.messages, message.NewText(role.System, system))
	}
	return c
}

// Append adds one or more messages to the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Ask appends a user turn and returns the payload for the whole conversation.
func (c *Chat) Ask(text string, attachments ...string) payload.Payload {
	c.Append(message.New(role.User, text, attachments...))
	return c.Payload()
}

// Reply records the assistant's answer. Blank answers are dropped so a failed
// turn does not leave an empty assistant message behind.
func (c *Chat) Reply(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.Append(message.NewText(role.Assistant, text))
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages in the conversation.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// SystemPrompt returns the text of the first system message, or "".
func (c *Chat) SystemPrompt() string {
	for _, m := range c.messages {
		if m.Role == role.System {
			return m.Content.Text
		}
	}
	return ""
}

// Payload renders the conversation.
func (c *Chat) Payload() payload.Payload {
	var tools map[string]bool
	if c.Tools != nil {
		tools = make(map[string]bool, len(c.Tools))
		for k, v := range c.Tools {
			tools[k] = v
		}
	}
	return payload.Payload{Model: c.Model, Stream: c.Stream, Messages: c.Messages(), Tools: tools}
}

// Reset drops every turn except a leading system prompt.
func (c *Chat) Reset() {
	if len(c.messages) > 0 && c.messages[0].Role == role.System {
		c.messages = c.messages[:1]
		return
	}
	c.messages = nil
}
