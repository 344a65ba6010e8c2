// Package gemini implements the Google Gemini generateContent family.
package gemini

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

// DefaultBaseURL is the Gemini API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const (
	modelsPath = "/v1beta/models"
	dataPrefix = "data:"
)

// New creates the adapter of a Gemini provider.
func New(p models.Provider, deps modeladapter.Deps) (*modeladapter.ModelAdapter, error) {
	if p.APIURL == "" {
		p.APIURL = DefaultBaseURL
	}

	key, err := p.Require("credential")
	if err != nil {
		return nil, err
	}

	// Gemini does not return rate limit headers.
	return modeladapter.New(p, modeladapter.Family{
		Codec: &Codec{inliner: deps.Inliner()},
		Auth:  modeladapter.Auth{Key: key, Header: "x-goog-api-key"},
	}, deps), nil
}

// --- wire types ---

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type apiContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type request struct {
	Contents          []apiContent      `json:"contents"`
	SystemInstruction *apiContent       `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content           apiContent `json:"content"`
	FinishReason      string     `json:"finishReason"`
	GroundingMetadata *struct {
		GroundingChunks []struct {
			Web *struct {
				URI   string `json:"uri"`
				Title string `json:"title"`
			} `json:"web"`
		} `json:"groundingChunks"`
	} `json:"groundingMetadata,omitempty"`
}

type response struct {
	Candidates    []candidate `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	} `json:"usageMetadata,omitempty"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

var _ modeladapter.Codec = (*Codec)(nil)

// Codec converts to and from the Gemini wire format.
type Codec struct {
	inliner *attachments.Inliner
}

// Convert implements modeladapter.Codec.
func (c *Codec) Convert(ctx context.Context, req models.Request, stream bool) (modeladapter.Call, error) {
	msgs := c.inliner.Inline(ctx, req.Model, req.Payload)

	var body request
	if _, ok := req.Payload.LeadingSystem(); ok {
		body.SystemInstruction = &apiContent{Parts: []part{{Text: msgs[0].TextOnly()}}}
		msgs = msgs[1:]
	}
	for _, m := range msgs {
		body.Contents = append(body.Contents, apiContent{Role: wireRole(m.Role), Parts: parts(m)})
	}

	if SearchEnabled(req) {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	if n := req.Model.MaxTokens(); n > 0 {
		body.GenerationConfig = &generationConfig{MaxOutputTokens: n}
	}

	id := strings.TrimPrefix(req.Model.ID(), "models/")
	call := modeladapter.Call{Path: modelsPath + "/" + id + ":generateContent", Body: body}
	if stream {
		call.Path = modelsPath + "/" + id + ":streamGenerateContent"
		call.Query = map[string]string{"alt": "sse"}
	}

	return call, nil
}

// SearchEnabled reports whether the google_search tool is attached to req.
// A model with the web_search capability gets it unless the payload
// enumerates tools without web_search. A model without the capability
// always gets it.
func SearchEnabled(req models.Request) bool {
	if !req.Model.HasTool(models.ToolWebSearch) {
		return true
	}
	if req.Payload.ToolsExplicit() {
		return req.Payload.ToolEnabled(models.ToolWebSearch)
	}
	return true
}

func wireRole(r role.Role) string {
	if r == role.Assistant {
		return "model"
	}
	return "user"
}

func parts(m attachments.Message) []part {
	out := make([]part, 0, len(m.Images)+1)
	if m.Text != "" {
		out = append(out, part{Text: m.Text})
	}
	for _, img := range m.Images {
		if len(img.Data) > 0 {
			out = append(out, part{InlineData: &inlineData{MimeType: img.MIME, Data: img.Base64()}})
			continue
		}
		out = append(out, part{FileData: &fileData{MimeType: img.MIME, FileURI: img.URL}})
	}
	if len(out) == 0 {
		out = append(out, part{Text: ""})
	}
	return out
}

// decode parses one response object. terminal reports whether a candidate
// carried a finish reason.
func decode(data []byte) (r models.Response, terminal bool) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.ErrorResponse(fmt.Errorf("gemini: decode response: %w", err)), true
	}
	if resp.Error != nil {
		return models.ErrorResponse(fmt.Errorf("gemini: %s: %s", resp.Error.Status, resp.Error.Message)), true
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && len(resp.Candidates) == 0 {
		return models.ErrorResponse(fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)), true
	}

	var text, thought strings.Builder
	var citations []string
	for _, cand := range resp.Candidates[:min(1, len(resp.Candidates))] {
		for _, p := range cand.Content.Parts {
			if p.Thought {
				thought.WriteString(p.Text)
			} else {
				text.WriteString(p.Text)
			}
		}
		if cand.GroundingMetadata != nil {
			for _, ch := range cand.GroundingMetadata.GroundingChunks {
				if ch.Web != nil && ch.Web.URI != "" {
					citations = append(citations, ch.Web.URI)
				}
			}
		}
		terminal = cand.FinishReason != ""
	}

	c := content.Content{}
	if text.Len() > 0 || terminal {
		c[content.KeyText] = text.String()
	}
	if thought.Len() > 0 {
		c[content.KeyReasoning] = thought.String()
	}
	if len(citations) > 0 {
		c[content.KeyCitations] = citations
	}

	r = models.Response{Content: c}
	if u := resp.UsageMetadata; u != nil && (u.PromptTokenCount > 0 || u.CandidatesTokenCount > 0) {
		r.Usage = &usage.TokenUsage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount + u.ThoughtsTokenCount,
		}
	}

	return r, terminal
}

// ResponseFromData implements modeladapter.Codec.
func (c *Codec) ResponseFromData(data []byte) models.Response {
	r, _ := decode(data)
	if r.Failed() {
		return r
	}
	if _, ok := r.Content[content.KeyText]; !ok {
		return models.ErrorResponse(errors.New("gemini: empty candidates in response"))
	}
	r.IsDone = true
	return r
}

// ResponseFromChunk implements modeladapter.Codec. A candidate finish reason
// marks the terminal event.
func (c *Codec) ResponseFromChunk(chunk []byte) (models.Response, bool) {
	data, ok := strings.CutPrefix(strings.TrimSpace(string(chunk)), dataPrefix)
	if !ok {
		return models.Response{}, false
	}

	r, terminal := decode([]byte(strings.TrimSpace(data)))
	if r.Failed() {
		return r, true
	}
	r.IsDone = terminal
	if !terminal && r.Content.IsEmpty() && r.Usage == nil {
		return models.Response{}, false
	}
	return r, true
}

// Delimiter implements modeladapter.Codec.
func (c *Codec) Delimiter() []byte { return []byte("\n") }

// StatusPath implements modeladapter.Codec.
func (c *Codec) StatusPath() string { return modelsPath }

// ParseStatus implements modeladapter.Codec. Listed names carry a "models/"
// prefix, which is stripped.
func (c *Codec) ParseStatus(data []byte) ([]string, error) {
	var list struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("gemini: decode models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}

	return ids, nil
}
