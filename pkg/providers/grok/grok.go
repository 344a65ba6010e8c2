// Package grok implements the xAI Grok family on top of the OpenAI codec.
package grok

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
	oa "github.com/germanamz/modelgate/pkg/providers/openai"
)

// DefaultBaseURL is the xAI API root.
const DefaultBaseURL = "https://api.x.ai"

// New creates the adapter of a Grok provider.
func New(p models.Provider, deps modeladapter.Deps) (*modeladapter.ModelAdapter, error) {
	if p.APIURL == "" {
		p.APIURL = DefaultBaseURL
	}

	key, err := p.Require("credential")
	if err != nil {
		return nil, err
	}

	return modeladapter.New(p, modeladapter.Family{
		Codec:            Codec{Codec: oa.NewCodec(deps.Inliner(), oa.VersionPrefix(p.APIURL))},
		Auth:             modeladapter.Auth{Key: key},
		RateLimitHeaders: &modeladapter.OpenAIHeaders,
	}, deps), nil
}

// SearchParameters enables xAI live search.
type SearchParameters struct {
	Mode            string `json:"mode"`
	ReturnCitations bool   `json:"return_citations"`
}

type request struct {
	openai.ChatCompletionRequest
	SearchParameters *SearchParameters `json:"search_parameters,omitempty"`
}

// Codec is the OpenAI codec plus live search for web_search capable models.
type Codec struct {
	*oa.Codec
}

// Convert implements modeladapter.Codec. Live search is requested when the
// model has web_search and the payload enables it.
func (c Codec) Convert(ctx context.Context, req models.Request, stream bool) (modeladapter.Call, error) {
	body := request{ChatCompletionRequest: c.BuildRequest(ctx, req, stream)}
	if req.Model.HasTool(models.ToolWebSearch) && req.Payload.ToolEnabled(models.ToolWebSearch) {
		body.SearchParameters = &SearchParameters{Mode: "auto", ReturnCitations: true}
	}

	return modeladapter.Call{Path: c.Path(oa.CompletionsPath), Body: body}, nil
}
