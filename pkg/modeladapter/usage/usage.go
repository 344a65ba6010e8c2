// Package usage defines the token usage record produced by a completed
// exchange and the recorder collaborator that receives it.
package usage

import (
	"context"
	"sync"
)

// TokenUsage holds the token counts of one completed exchange.
// The gateway creates it once per exchange and hands it to a Recorder; it is
// never stored by the gateway itself.
type TokenUsage struct {
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Total returns the sum of prompt and completion tokens.
func (u TokenUsage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// IsZero reports whether no tokens were counted.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0
}

// Merge combines two partial usage reports of the same stream. Providers that
// split counts across events (input on the first, output on the last) or that
// repeat cumulative counts are both handled by keeping the larger value per
// field. Either argument may be nil.
func Merge(a, b *TokenUsage) *TokenUsage {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		c := *b
		return &c
	case b == nil:
		c := *a
		return &c
	}

	out := *a
	out.PromptTokens = max(a.PromptTokens, b.PromptTokens)
	out.CompletionTokens = max(a.CompletionTokens, b.CompletionTokens)
	if out.Model == "" {
		out.Model = b.Model
	}

	return &out
}

// RecordContext describes the exchange a usage record belongs to.
type RecordContext struct {
	RequestID string
	Provider  string
	Model     string
	UsageType string
}

// Recorder accepts token usage records. Record is fire-and-forget from the
// gateway's point of view: a returned error is logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, u TokenUsage, rc RecordContext) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, u TokenUsage, rc RecordContext) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, u TokenUsage, rc RecordContext) error {
	return f(ctx, u, rc)
}

// Discard is a Recorder that drops every record.
var Discard Recorder = RecorderFunc(func(context.Context, TokenUsage, RecordContext) error { return nil })

// Entry is one record kept by a Tracker.
type Entry struct {
	Usage   TokenUsage
	Context RecordContext
}

// Tracker is an in-memory Recorder that accumulates records.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Recorder = (*Tracker)(nil)

// Record appends a usage record.
func (t *Tracker) Record(_ context.Context, u TokenUsage, rc RecordContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Entry{Usage: u, Context: rc})

	return nil
}

// Last returns the most recent record.
// The bool is false when the tracker has no entries.
func (t *Tracker) Last() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return Entry{}, false
	}

	return t.entries[len(t.entries)-1], true
}

// Total returns the aggregate token counts across all entries.
func (t *Tracker) Total() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total TokenUsage
	for _, e := range t.entries {
		total.PromptTokens += e.Usage.PromptTokens
		total.CompletionTokens += e.Usage.CompletionTokens
	}

	return total
}

// TotalFor returns the aggregate token counts recorded for one model id.
func (t *Tracker) TotalFor(model string) TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := TokenUsage{Model: model}
	for _, e := range t.entries {
		if e.Usage.Model != model {
			continue
		}
		total.PromptTokens += e.Usage.PromptTokens
		total.CompletionTokens += e.Usage.CompletionTokens
	}

	return total
}

// Count returns the number of recorded entries.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Reset clears all recorded entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
}
