// Package providers registers the shipped API families.
//
// Each family lives in its own subpackage:
//   - [github.com/germanamz/modelgate/pkg/providers/openai]: OpenAI Chat Completions
//   - [github.com/germanamz/modelgate/pkg/providers/anthropic]: Anthropic Messages
//   - [github.com/germanamz/modelgate/pkg/providers/gemini]: Google Gemini, search-capable
//   - [github.com/germanamz/modelgate/pkg/providers/grok]: xAI Grok, OpenAI-compatible
//   - [github.com/germanamz/modelgate/pkg/providers/generic]: any OpenAI-compatible endpoint
//
// [Defaults] returns a [modeladapter.Factories] holding all of them.
package providers
