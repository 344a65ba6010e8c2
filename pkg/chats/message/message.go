// Package message defines the inbound message shape of a chat request.
package message

import (
	"strings"

	"github.com/germanamz/modelgate/pkg/chats/role"
)

// Content is the body of a message: optional text plus optional attachment ids
// that are resolved through the attachment store before the request is sent.
type Content struct {
	Text        string   `json:"text,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Message is a single turn of a conversation.
type Message struct {
	Role    role.Role `json:"role"`
	Content Content   `json:"content"`
}

// NewText creates a message with the given role and text.
func NewText(r role.Role, text string) Message {
	return Message{Role: r, Content: Content{Text: text}}
}

// New creates a message with text and attachment ids.
func New(r role.Role, text string, attachments ...string) Message {
	return Message{Role: r, Content: Content{Text: text, Attachments: attachments}}
}

// HasAttachments reports whether the message references any attachment.
func (m Message) HasAttachments() bool {
	return len(m.Content.Attachments) > 0
}

// IsBlank reports whether the message has neither text nor attachments.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content.Text) == "" && !m.HasAttachments()
}
