package models

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

// Model is an immutable wrapper over a model Record. It is either unbound or
// bound exactly once to a Context.
type Model struct {
	record Record
	ctx    atomic.Pointer[Context]
}

// NewModel wraps a copy of r in an unbound Model.
func NewModel(r Record) *Model {
	return &Model{record: r.clone()}
}

// ID returns the model identifier.
func (m *Model) ID() string { return m.record.ID }

// Label returns the display label, falling back to the id.
func (m *Model) Label() string {
	if m.record.Label != "" {
		return m.record.Label
	}
	return m.record.ID
}

// Active reports whether the model is enabled.
func (m *Model) Active() bool { return m.record.IsActive() }

// InputMethods returns the accepted input methods (text, image, ...).
func (m *Model) InputMethods() []string { return slices.Clone(m.record.Input) }

// OutputMethods returns the produced output methods.
func (m *Model) OutputMethods() []string { return slices.Clone(m.record.Output) }

// Tools returns a copy of the capability map.
func (m *Model) Tools() map[string]bool { return maps.Clone(m.record.Tools) }

// HasTool reports whether the named capability is enabled.
func (m *Model) HasTool(name string) bool { return m.record.Tools[name] }

// Supports reports whether the model accepts the given input method.
func (m *Model) Supports(method string) bool { return slices.Contains(m.record.Input, method) }

// IsStreamable reports whether the model advertises the stream capability.
func (m *Model) IsStreamable() bool { return m.HasTool(ToolStream) }

// CanSeeImages reports whether image attachments may be sent to the model:
// it needs the vision capability and image input.
func (m *Model) CanSeeImages() bool { return m.HasTool(ToolVision) && m.Supports(MethodImage) }

// CanReadFiles reports whether document attachments may be sent to the model.
func (m *Model) CanReadFiles() bool { return m.HasTool(ToolFileUpload) }

// AllowedExternally reports whether the model may be exposed to external apps.
func (m *Model) AllowedExternally() bool { return m.record.External }

// SystemRole returns the role a leading system message is re-tagged to, or ""
// to keep the provider's default handling.
func (m *Model) SystemRole() string { return m.record.SystemRole }

// MaxTokens returns the configured completion limit, 0 meaning provider default.
func (m *Model) MaxTokens() int { return m.record.MaxTokens }

// Extra returns a raw configuration value that has no dedicated accessor.
func (m *Model) Extra(key string) (any, bool) {
	v, ok := m.record.Extra[key]
	return v, ok
}

// Record returns a copy of the underlying configuration record.
func (m *Model) Record() Record { return m.record.clone() }

// IDMatches reports whether id refers to this model.
func (m *Model) IDMatches(id string) bool { return IDMatches(m.record.ID, id) }

// IDMatches compares two model ids, treating a provider-qualified id
// ("openai/gpt-4.1") as equal to its unqualified form ("gpt-4.1").
func IDMatches(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return baseID(a) == b || a == baseID(b)
}

func baseID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Bind attaches the model to its Context. A model can be bound only once.
func (m *Model) Bind(c *Context) error {
	if c == nil {
		return fmt.Errorf("models: bind %q: nil context", m.record.ID)
	}
	if !m.ctx.CompareAndSwap(nil, c) {
		return fmt.Errorf("models: bind %q: %w", m.record.ID, ErrAlreadyBound)
	}
	return nil
}

// IsBound reports whether the model has a Context.
func (m *Model) IsBound() bool { return m.ctx.Load() != nil }

// Context returns the binding context.
func (m *Model) Context() (*Context, error) {
	c := m.ctx.Load()
	if c == nil {
		return nil, fmt.Errorf("models: %q: %w", m.record.ID, ErrUnbound)
	}
	return c, nil
}

// Provider returns the provider the model is bound to.
func (m *Model) Provider() (Provider, error) {
	c, err := m.Context()
	if err != nil {
		return Provider{}, err
	}
	return c.Provider(), nil
}

// Client resolves the client that owns this model.
func (m *Model) Client() (Client, error) {
	c, err := m.Context()
	if err != nil {
		return nil, err
	}
	return c.ResolveClient()
}

// Status resolves the model's availability. Resolution is cached per client,
// so only the first call for a provider performs network I/O.
func (m *Model) Status(ctx context.Context) (Status, error) {
	c, err := m.Context()
	if err != nil {
		return StatusUnknown, err
	}
	return c.ResolveStatus(ctx, m), nil
}
