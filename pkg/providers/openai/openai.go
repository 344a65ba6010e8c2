// Package openai implements the OpenAI Chat Completions family. Its [Codec]
// is shared by every OpenAI-compatible family.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/chats/content"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com"

const (
	// CompletionsPath is the chat endpoint, relative to the version prefix.
	CompletionsPath = "/chat/completions"
	modelsPath      = "/models"
	dataPrefix      = "data:"
	doneMarker      = "[DONE]"
)

// New creates the adapter of an OpenAI provider. The credential is required;
// the API URL defaults to DefaultBaseURL.
func New(p models.Provider, deps modeladapter.Deps) (*modeladapter.ModelAdapter, error) {
	if p.APIURL == "" {
		p.APIURL = DefaultBaseURL
	}

	key, err := p.Require("credential")
	if err != nil {
		return nil, err
	}

	return modeladapter.New(p, modeladapter.Family{
		Codec:            NewCodec(deps.Inliner(), VersionPrefix(p.APIURL)),
		Auth:             modeladapter.Auth{Key: key},
		RateLimitHeaders: &modeladapter.OpenAIHeaders,
	}, deps), nil
}

// VersionPrefix returns "/v1" unless the base URL already ends with it.
func VersionPrefix(baseURL string) string {
	if strings.HasSuffix(strings.TrimRight(baseURL, "/"), "/v1") {
		return ""
	}
	return "/v1"
}

var _ modeladapter.Codec = (*Codec)(nil)

// Codec converts to and from the Chat Completions wire format.
type Codec struct {
	inliner *attachments.Inliner
	prefix  string
}

// NewCodec creates a codec. prefix is prepended to every path.
func NewCodec(inliner *attachments.Inliner, prefix string) *Codec {
	return &Codec{inliner: inliner, prefix: prefix}
}

// Path returns p with the version prefix.
func (c *Codec) Path(p string) string { return c.prefix + p }

// BuildRequest converts req into a Chat Completions request. A leading system
// message is re-tagged to the model's system role when one is configured.
func (c *Codec) BuildRequest(ctx context.Context, req models.Request, stream bool) openai.ChatCompletionRequest {
	msgs := c.inliner.Inline(ctx, req.Model, req.Payload)
	_, hasSystem := req.Payload.LeadingSystem()

	out := openai.ChatCompletionRequest{
		Model:    req.Model.ID(),
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)),
		Stream:   stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	if n := req.Model.MaxTokens(); n > 0 {
		out.MaxCompletionTokens = n
	}

	for i, m := range msgs {
		r := string(m.Role)
		if i == 0 && hasSystem && req.Model.SystemRole() != "" {
			r = req.Model.SystemRole()
		}
		out.Messages = append(out.Messages, toMessage(r, m))
	}

	return out
}

func toMessage(r string, m attachments.Message) openai.ChatCompletionMessage {
	if len(m.Images) == 0 {
		return openai.ChatCompletionMessage{Role: r, Content: m.Text}
	}

	parts := make([]openai.ChatMessagePart, 0, len(m.Images)+1)
	if m.Text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: m.Text})
	}
	for _, img := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: img.Ref(), Detail: openai.ImageURLDetailAuto},
		})
	}

	return openai.ChatCompletionMessage{Role: r, MultiContent: parts}
}

// Convert implements modeladapter.Codec.
func (c *Codec) Convert(ctx context.Context, req models.Request, stream bool) (modeladapter.Call, error) {
	return modeladapter.Call{
		Path: c.Path(CompletionsPath),
		Body: c.BuildRequest(ctx, req, stream),
	}, nil
}

// response adds the top-level citations some compatible providers return.
type response struct {
	openai.ChatCompletionResponse
	Citations []string         `json:"citations,omitempty"`
	Error     *openai.APIError `json:"error,omitempty"`
}

// ResponseFromData implements modeladapter.Codec.
func (c *Codec) ResponseFromData(data []byte) models.Response {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.ErrorResponse(fmt.Errorf("openai: decode response: %w", err))
	}
	if resp.Error != nil {
		return models.ErrorResponse(fmt.Errorf("openai: %s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return models.ErrorResponse(errors.New("openai: empty choices in response"))
	}

	msg := resp.Choices[0].Message

	return models.Response{
		Content: buildContent(msg.Content, msg.ReasoningContent, resp.Citations),
		Usage:   toUsage(&resp.Usage),
		IsDone:  true,
	}
}

type streamResponse struct {
	openai.ChatCompletionStreamResponse
	Citations []string         `json:"citations,omitempty"`
	Error     *openai.APIError `json:"error,omitempty"`
}

// ResponseFromChunk implements modeladapter.Codec. Only "data:" lines carry
// events; "data: [DONE]" is the terminal marker.
func (c *Codec) ResponseFromChunk(chunk []byte) (models.Response, bool) {
	data, ok := strings.CutPrefix(strings.TrimSpace(string(chunk)), dataPrefix)
	if !ok {
		return models.Response{}, false
	}
	data = strings.TrimSpace(data)

	if data == doneMarker {
		return models.Response{Content: content.Text(""), IsDone: true}, true
	}

	var ev streamResponse
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return models.ErrorResponse(fmt.Errorf("openai: decode stream event: %w", err)), true
	}
	if ev.Error != nil {
		return models.ErrorResponse(fmt.Errorf("openai: %s", ev.Error.Message)), true
	}

	var text, reasoning string
	if len(ev.Choices) > 0 {
		text = ev.Choices[0].Delta.Content
		reasoning = ev.Choices[0].Delta.ReasoningContent
	}

	return models.Response{
		Content: buildContent(text, reasoning, ev.Citations),
		Usage:   toUsage(ev.Usage),
	}, true
}

// Delimiter implements modeladapter.Codec.
func (c *Codec) Delimiter() []byte { return []byte("\n") }

// StatusPath implements modeladapter.Codec.
func (c *Codec) StatusPath() string { return c.Path(modelsPath) }

// ParseStatus implements modeladapter.Codec.
func (c *Codec) ParseStatus(data []byte) ([]string, error) {
	var list openai.ModelsList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("openai: decode models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}

	return ids, nil
}

func buildContent(text, reasoning string, citations []string) content.Content {
	c := content.Text(text)
	if reasoning != "" {
		c[content.KeyReasoning] = reasoning
	}
	if len(citations) > 0 {
		c[content.KeyCitations] = citations
	}
	return c
}

func toUsage(u *openai.Usage) *usage.TokenUsage {
	if u == nil || (u.PromptTokens == 0 && u.CompletionTokens == 0) {
		return nil
	}
	return &usage.TokenUsage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens}
}
