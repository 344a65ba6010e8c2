// Package attachments resolves attachment ids referenced by chat messages and
// inlines them into provider-neutral message parts.
package attachments

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies an attachment.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindOther    Kind = "other"
)

// KindOf derives the kind of an attachment from its MIME type.
func KindOf(mime string) Kind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case strings.HasPrefix(mime, "text/"),
		mime == "application/pdf",
		mime == "application/json",
		mime == "application/xml",
		strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument."),
		mime == "application/msword",
		mime == "application/rtf":
		return KindDocument
	default:
		return KindOther
	}
}

// Attachment describes a stored file. URL is set when the store can serve the
// file from a location the provider can fetch itself.
type Attachment struct {
	ID   string
	Kind Kind
	MIME string
	Name string
	URL  string
}

// DisplayName returns the name, falling back to the id.
func (a Attachment) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// ErrNotFound is returned by stores for unknown attachment ids.
var ErrNotFound = errors.New("attachment not found")

// Store is the attachment collaborator consumed by provider adapters.
type Store interface {
	// ResolveMany looks up every id in one batch. Unknown ids are absent from
	// the result.
	ResolveMany(ctx context.Context, ids []string) (map[string]Attachment, error)
	// FetchBytes returns the raw file contents.
	FetchBytes(ctx context.Context, a Attachment) ([]byte, error)
	// FetchText returns previously extracted text in the given format ("text").
	FetchText(ctx context.Context, a Attachment, format string) (string, error)
}
