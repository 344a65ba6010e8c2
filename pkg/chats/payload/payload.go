// Package payload defines the raw request payload accepted by the gateway:
//
//	{model: string, stream: bool, messages: [...], tools?: {web_search?: bool}}
package payload

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/germanamz/modelgate/pkg/chats/message"
	"github.com/germanamz/modelgate/pkg/chats/role"
)

// Payload is the inbound request body. Tools is nil when the caller did not
// enumerate tools at all, which adapters treat differently from an empty map.
type Payload struct {
	Model    string            `json:"model"`
	Stream   bool              `json:"stream"`
	Messages []message.Message `json:"messages"`
	Tools    map[string]bool   `json:"tools,omitempty"`
}

// Decode reads a JSON payload from r.
func Decode(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("payload: decode: %w", err)
	}
	return p, nil
}

// FromMap converts a loosely typed payload (as produced by a web layer that
// decoded JSON into map[string]any) into a Payload.
func FromMap(m map[string]any) (Payload, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: encode map: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("payload: decode map: %w", err)
	}
	return p, nil
}

// ModelID returns the trimmed model id, or "" when absent.
func (p Payload) ModelID() string {
	return strings.TrimSpace(p.Model)
}

// ToolsExplicit reports whether the caller enumerated tools.
func (p Payload) ToolsExplicit() bool {
	return p.Tools != nil
}

// ToolEnabled reports whether the caller explicitly enabled the named tool.
func (p Payload) ToolEnabled(name string) bool {
	return p.Tools[name]
}

// LeadingSystem returns the first message when it has the system role.
func (p Payload) LeadingSystem() (message.Message, bool) {
	if len(p.Messages) == 0 || p.Messages[0].Role != role.System {
		return message.Message{}, false
	}
	return p.Messages[0], true
}

// AttachmentIDs returns every attachment id referenced by the payload, in
// order of first appearance, without duplicates.
func (p Payload) AttachmentIDs() []string {
	seen := make(map[string]struct{})
	var ids []string

	for _, m := range p.Messages {
		for _, id := range m.Content.Attachments {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids
}
