package modeladapter

import (
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
)

// perMessageOverhead is the estimated token overhead for each message (role,
// structure delimiters, etc.).
const perMessageOverhead = 4

// perAttachmentOverhead is a flat estimate for an inlined attachment reference.
const perAttachmentOverhead = 85

// perToolOverhead is the estimated token overhead of an enabled built-in tool.
const perToolOverhead = 10

// TokenEstimator estimates token counts when a provider reports no usage.
// It uses a character-to-token heuristic (approximately 1 token per 4
// characters for English text). The zero value is ready to use.
type TokenEstimator struct{}

// charsToTokens converts a character count to an estimated token count using the
// 1-token-per-4-characters heuristic.
func charsToTokens(chars int) int {
	return (chars + 3) / 4 // round up
}

// EstimatePayload estimates the input tokens of a request payload.
func (e TokenEstimator) EstimatePayload(p payload.Payload) int {
	tokens := 0

	for _, m := range p.Messages {
		tokens += perMessageOverhead + charsToTokens(len(m.Content.Text))
		tokens += perAttachmentOverhead * len(m.Content.Attachments)
	}

	for _, enabled := range p.Tools {
		if enabled {
			tokens += perToolOverhead
		}
	}

	return tokens
}

// EstimateText estimates the tokens of a completion.
func (e TokenEstimator) EstimateText(s string) int {
	return charsToTokens(len(s))
}

// Usage estimates the usage of an exchange.
func (e TokenEstimator) Usage(p payload.Payload, completion string) usage.TokenUsage {
	return usage.TokenUsage{
		Model:            p.ModelID(),
		PromptTokens:     e.EstimatePayload(p),
		CompletionTokens: e.EstimateText(completion),
	}
}
