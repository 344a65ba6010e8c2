// Package generic implements the fallback family for OpenAI-compatible
// endpoints such as local inference servers.
package generic

import (
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/providers/openai"
)

// New creates the adapter of a generic provider. The API URL is required and
// the credential is optional.
func New(p models.Provider, deps modeladapter.Deps) (*modeladapter.ModelAdapter, error) {
	if _, err := p.Require("api_url"); err != nil {
		return nil, err
	}

	return modeladapter.New(p, modeladapter.Family{
		Codec: openai.NewCodec(deps.Inliner(), openai.VersionPrefix(p.APIURL)),
		Auth:  modeladapter.Auth{Key: p.Credential},
		// Compatible servers that rate limit use the OpenAI header names.
		RateLimitHeaders: &modeladapter.OpenAIHeaders,
	}, deps), nil
}
