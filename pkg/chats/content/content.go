// Package content defines the normalized content map carried by gateway responses.
package content

import "maps"

// Well-known keys of a Content map.
const (
	KeyText      = "text"
	KeyError     = "error"
	KeyReasoning = "reasoning"
	KeyCitations = "citations"
)

// Content is the provider-independent body of a response. It always carries a
// "text" entry for completed exchanges; adapters may add provider-specific
// entries such as "reasoning" or "citations".
type Content map[string]any

// Text creates a Content holding only the given text.
func Text(text string) Content {
	return Content{KeyText: text}
}

// Failure creates the content of a failed exchange.
func Failure(msg string) Content {
	return Content{
		KeyText:  "INTERNAL ERROR: " + msg,
		KeyError: msg,
	}
}

// Text returns the "text" entry, or "" when absent or not a string.
func (c Content) Text() string {
	s, _ := c[KeyText].(string)
	return s
}

// Error returns the "error" entry, or "" when absent.
func (c Content) Error() string {
	s, _ := c[KeyError].(string)
	return s
}

// String returns the string entry stored under key.
func (c Content) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// With returns a copy of c with key set to value.
func (c Content) With(key string, value any) Content {
	out := c.Clone()
	out[key] = value
	return out
}

// Clone returns a shallow copy of c. A nil Content clones to an empty map.
func (c Content) Clone() Content {
	out := make(Content, len(c)+1)
	maps.Copy(out, c)
	return out
}

// IsEmpty reports whether the content carries no text and no other entries.
func (c Content) IsEmpty() bool {
	if len(c) == 0 {
		return true
	}
	return len(c) == 1 && c.Text() == "" && c[KeyText] != nil
}
