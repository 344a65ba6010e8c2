// Package anthropic implements the Anthropic Messages API family.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/chats/content"
	"github.com/germanamz/modelgate/pkg/chats/role"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
)

// DefaultBaseURL is the Anthropic API root.
const DefaultBaseURL = "https://api.anthropic.com"

// APIVersion is sent in the anthropic-version header.
const APIVersion = "2023-06-01"

// DefaultMaxTokens is used when the model does not configure max_tokens.
const DefaultMaxTokens = 4096

const (
	messagesPath = "/v1/messages"
	modelsPath   = "/v1/models"
	dataPrefix   = "data:"
)

// New creates the adapter of an Anthropic provider.
func New(p models.Provider, deps modeladapter.Deps) (*modeladapter.ModelAdapter, error) {
	if p.APIURL == "" {
		p.APIURL = DefaultBaseURL
	}

	key, err := p.Require("credential")
	if err != nil {
		return nil, err
	}

	return modeladapter.New(p, modeladapter.Family{
		Codec:            &Codec{inliner: deps.Inliner()},
		Auth:             modeladapter.Auth{Key: key, Header: "x-api-key"},
		Headers:          map[string]string{"anthropic-version": APIVersion},
		RateLimitHeaders: &modeladapter.AnthropicHeaders,
	}, deps), nil
}

// --- wire types ---

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type block struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Thinking string       `json:"thinking,omitempty"`
	Source   *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type response struct {
	Type       string    `json:"type"`
	Content    []block   `json:"content"`
	StopReason string    `json:"stop_reason"`
	Usage      apiUsage  `json:"usage"`
	Error      *apiError `json:"error,omitempty"`
}

type event struct {
	Type    string    `json:"type"`
	Message *response `json:"message,omitempty"`
	Delta   struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
	Usage *apiUsage `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

var _ modeladapter.Codec = (*Codec)(nil)

// Codec converts to and from the Messages wire format.
type Codec struct {
	inliner *attachments.Inliner
}

// Convert implements modeladapter.Codec. The leading system message becomes
// the top-level system prompt; later system messages are sent as user turns.
// Empty turns are dropped and consecutive turns of one role are merged.
func (c *Codec) Convert(ctx context.Context, req models.Request, stream bool) (modeladapter.Call, error) {
	msgs := c.inliner.Inline(ctx, req.Model, req.Payload)

	body := request{
		Model:     req.Model.ID(),
		MaxTokens: req.Model.MaxTokens(),
		Messages:  make([]message, 0, len(msgs)),
		Stream:    stream,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = DefaultMaxTokens
	}

	if _, ok := req.Payload.LeadingSystem(); ok {
		body.System = msgs[0].TextOnly()
		msgs = msgs[1:]
	}

	for _, m := range msgs {
		if m.IsEmpty() {
			continue
		}

		r := m.Role
		if r == role.System {
			r = role.User
		}

		// Turns must alternate, so consecutive turns of one role are merged.
		if n := len(body.Messages); n > 0 && body.Messages[n-1].Role == string(r) {
			body.Messages[n-1].Content = append(body.Messages[n-1].Content, blocks(m)...)
			continue
		}

		body.Messages = append(body.Messages, message{Role: string(r), Content: blocks(m)})
	}

	return modeladapter.Call{Path: messagesPath, Body: body}, nil
}

func blocks(m attachments.Message) []block {
	out := make([]block, 0, len(m.Images)+1)
	for _, img := range m.Images {
		src := &imageSource{Type: "base64", MediaType: img.MIME, Data: img.Base64()}
		if len(img.Data) == 0 {
			src = &imageSource{Type: "url", URL: img.URL}
		}
		out = append(out, block{Type: "image", Source: src})
	}
	if strings.TrimSpace(m.Text) != "" {
		out = append(out, block{Type: "text", Text: m.Text})
	}
	return out
}

// ResponseFromData implements modeladapter.Codec.
func (c *Codec) ResponseFromData(data []byte) models.Response {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.ErrorResponse(fmt.Errorf("anthropic: decode response: %w", err))
	}
	if resp.Error != nil {
		return models.ErrorResponse(fmt.Errorf("anthropic: %s", resp.Error.Message))
	}

	var text, thinking strings.Builder
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "thinking":
			thinking.WriteString(b.Thinking)
		}
	}

	out := content.Text(text.String())
	if thinking.Len() > 0 {
		out[content.KeyReasoning] = thinking.String()
	}

	return models.Response{
		Content: out,
		Usage:   toUsage(resp.Usage),
		IsDone:  true,
	}
}

// ResponseFromChunk implements modeladapter.Codec. The "event:" lines are
// ignored since every data payload carries its own type.
func (c *Codec) ResponseFromChunk(chunk []byte) (models.Response, bool) {
	data, ok := strings.CutPrefix(strings.TrimSpace(string(chunk)), dataPrefix)
	if !ok {
		return models.Response{}, false
	}

	var ev event
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil {
		return models.ErrorResponse(fmt.Errorf("anthropic: decode stream event: %w", err)), true
	}

	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return models.Response{}, false
		}
		return models.Response{Content: content.Content{}, Usage: toUsage(ev.Message.Usage)}, true
	case "content_block_delta":
		return models.Response{Content: buildContent(ev.Delta.Text, ev.Delta.Thinking)}, true
	case "message_delta":
		if ev.Usage == nil {
			return models.Response{}, false
		}
		return models.Response{Content: content.Content{}, Usage: toUsage(*ev.Usage)}, true
	case "message_stop":
		return models.Response{Content: content.Text(""), IsDone: true}, true
	case "error":
		if ev.Error == nil {
			return models.ErrorResponse(errors.New("anthropic: stream error")), true
		}
		return models.ErrorResponse(fmt.Errorf("anthropic: %s: %s", ev.Error.Type, ev.Error.Message)), true
	default:
		// ping, content_block_start, content_block_stop
		return models.Response{}, false
	}
}

// Delimiter implements modeladapter.Codec.
func (c *Codec) Delimiter() []byte { return []byte("\n") }

// StatusPath implements modeladapter.Codec.
func (c *Codec) StatusPath() string { return modelsPath }

// ParseStatus implements modeladapter.Codec.
func (c *Codec) ParseStatus(data []byte) ([]string, error) {
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("anthropic: decode models: %w", err)
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}

	return ids, nil
}

func buildContent(text, thinking string) content.Content {
	if text == "" && thinking == "" {
		return content.Content{}
	}
	c := content.Text(text)
	if thinking != "" {
		c[content.KeyReasoning] = thinking
	}
	return c
}

func toUsage(u apiUsage) *usage.TokenUsage {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return nil
	}
	return &usage.TokenUsage{PromptTokens: u.InputTokens, CompletionTokens: u.OutputTokens}
}
