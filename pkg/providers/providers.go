package providers

import (
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/providers/anthropic"
	"github.com/germanamz/modelgate/pkg/providers/gemini"
	"github.com/germanamz/modelgate/pkg/providers/generic"
	"github.com/germanamz/modelgate/pkg/providers/grok"
	"github.com/germanamz/modelgate/pkg/providers/openai"
)

// Family names.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Grok      = "grok"
	Generic   = modeladapter.GenericFamily
)

// Defaults returns a new registry with every shipped family.
func Defaults() modeladapter.Factories {
	f := modeladapter.Factories{}
	f.Register(OpenAI, openai.New)
	f.Register(Anthropic, anthropic.New)
	f.Register(Gemini, gemini.New)
	f.Register(Grok, grok.New)
	f.Register(Generic, generic.New)
	return f
}
