package models

import "slices"

// Input and output methods.
const (
	MethodText  = "text"
	MethodImage = "image"
	MethodAudio = "audio"
	MethodFile  = "file"
)

// Tool capability names.
const (
	ToolStream     = "stream"
	ToolVision     = "vision"
	ToolFileUpload = "file_upload"
	ToolWebSearch  = "web_search"
)

// Record is the raw configuration of a model as listed by its provider.
// Unknown keys are kept in Extra.
type Record struct {
	ID         string          `yaml:"id" json:"id"`
	Label      string          `yaml:"label" json:"label,omitempty"`
	Active     *bool           `yaml:"active" json:"active,omitempty"`
	Input      []string        `yaml:"input" json:"input,omitempty"`
	Output     []string        `yaml:"output" json:"output,omitempty"`
	Tools      map[string]bool `yaml:"tools" json:"tools,omitempty"`
	External   bool            `yaml:"external" json:"external,omitempty"`
	SystemRole string          `yaml:"system_role" json:"system_role,omitempty"`
	MaxTokens  int             `yaml:"max_tokens" json:"max_tokens,omitempty"`
	Extra      map[string]any  `yaml:",inline" json:"-"`
}

// IsActive reports whether the record is enabled. An omitted flag means active.
func (r Record) IsActive() bool {
	return r.Active == nil || *r.Active
}

// clone returns a deep copy so a Model never shares slices or maps with the
// configuration it was built from.
func (r Record) clone() Record {
	out := r
	out.Input = slices.Clone(r.Input)
	out.Output = slices.Clone(r.Output)

	if r.Active != nil {
		v := *r.Active
		out.Active = &v
	}

	if r.Tools != nil {
		out.Tools = make(map[string]bool, len(r.Tools))
		for k, v := range r.Tools {
			out.Tools[k] = v
		}
	}

	if r.Extra != nil {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}

	return out
}
