package attachments

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"github.com/germanamz/modelgate/pkg/chats/message"
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/chats/role"
	"github.com/germanamz/modelgate/pkg/models"
)

// Image is an image attachment ready to be embedded in a provider payload.
// Either URL or Data is set.
type Image struct {
	ID   string
	Name string
	MIME string
	URL  string
	Data []byte
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string { return base64.StdEncoding.EncodeToString(i.Data) }

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string { return "data:" + i.MIME + ";base64," + i.Base64() }

// Ref returns the URL when present and the data URL otherwise.
func (i Image) Ref() string {
	if i.URL != "" {
		return i.URL
	}
	return i.DataURL()
}

// Message is a chat message after attachment inlining. Text holds the
// original text followed by inlined documents and the skip notice.
type Message struct {
	Role   role.Role
	Text   string
	Images []Image
}

// TextOnly returns the message text for text-only slots such as a system
// prompt. Images cannot go there, so they are named in a skip notice instead.
func (m Message) TextOnly() string {
	if len(m.Images) == 0 {
		return m.Text
	}

	names := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		names = append(names, img.Name)
	}

	if m.Text == "" {
		return SkipNotice(names)
	}
	return m.Text + "\n\n" + SkipNotice(names)
}

// IsEmpty reports whether the message carries neither text nor images.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == "" && len(m.Images) == 0
}

// Inliner resolves message attachments against a Store for a given model.
// A nil store skips every attachment.
type Inliner struct {
	store Store
	log   zerolog.Logger
}

// NewInliner creates an inliner.
func NewInliner(store Store, log zerolog.Logger) *Inliner {
	return &Inliner{store: store, log: log}
}

// Inline converts the messages of p for model m. All attachment ids are
// resolved in a single batch. Attachments the model cannot consume, or that
// cannot be resolved, are left out and named in one notice appended to their
// message. Inline never fails.
func (in *Inliner) Inline(ctx context.Context, m *models.Model, p payload.Payload) []Message {
	resolved := in.resolve(ctx, p.AttachmentIDs())

	out := make([]Message, 0, len(p.Messages))
	for _, msg := range p.Messages {
		out = append(out, in.inlineOne(ctx, m, msg, resolved))
	}

	return out
}

func (in *Inliner) resolve(ctx context.Context, ids []string) map[string]Attachment {
	if len(ids) == 0 || in.store == nil {
		return nil
	}

	resolved, err := in.store.ResolveMany(ctx, ids)
	if err != nil {
		in.log.Warn().Err(err).Int("attachments", len(ids)).Msg("resolve attachments")
	}

	return resolved
}

func (in *Inliner) inlineOne(ctx context.Context, m *models.Model, msg message.Message, resolved map[string]Attachment) Message {
	out := Message{Role: msg.Role}

	var (
		text    strings.Builder
		skipped []string
	)
	text.WriteString(msg.Content.Text)

	for _, id := range msg.Content.Attachments {
		a, ok := resolved[id]
		if !ok {
			skipped = append(skipped, id)
			continue
		}

		switch {
		case a.Kind == KindImage && m.CanSeeImages():
			img, err := in.image(ctx, a)
			if err != nil {
				in.log.Warn().Err(err).Str("attachment", id).Msg("fetch image")
				skipped = append(skipped, a.DisplayName())
				continue
			}
			out.Images = append(out.Images, img)

		case a.Kind == KindDocument && m.CanReadFiles():
			body, err := in.store.FetchText(ctx, a, "text")
			if err != nil {
				in.log.Warn().Err(err).Str("attachment", id).Msg("fetch document text")
				skipped = append(skipped, a.DisplayName())
				continue
			}
			writeDocument(&text, a.DisplayName(), body)

		default:
			skipped = append(skipped, a.DisplayName())
		}
	}

	if len(skipped) > 0 {
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(SkipNotice(skipped))
	}

	out.Text = text.String()

	return out
}

func (in *Inliner) image(ctx context.Context, a Attachment) (Image, error) {
	img := Image{ID: a.ID, Name: a.DisplayName(), MIME: a.MIME, URL: a.URL}
	if img.URL != "" {
		return img, nil
	}

	data, err := in.store.FetchBytes(ctx, a)
	if err != nil {
		return Image{}, err
	}
	img.Data = data

	return img, nil
}

// SkipNotice is the text appended to a message whose attachments were left out.
func SkipNotice(names []string) string {
	return fmt.Sprintf("[The following attachments were not sent because this model cannot process them: %s]",
		strings.Join(names, ", "))
}

func writeDocument(b *strings.Builder, name, body string) {
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("ATTACHED FILE: ")
	b.WriteString(html.EscapeString(name))
	b.WriteString("\n```\n")
	b.WriteString(html.EscapeString(body))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```")
}
