package attachments

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/modelgate/pkg/chats/message"
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/chats/role"
	"github.com/germanamz/modelgate/pkg/models"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func visionModel() *models.Model {
	return models.NewModel(models.Record{
		ID:    "vision",
		Input: []string{models.MethodText, models.MethodImage},
		Tools: map[string]bool{models.ToolVision: true, models.ToolFileUpload: true},
	})
}

func textModel() *models.Model {
	return models.NewModel(models.Record{ID: "text", Input: []string{models.MethodText}})
}

func testStore() *MemoryStore {
	s := NewMemoryStore()
	s.Put(Attachment{ID: "img", MIME: "image/png", Name: "cat.png"}, pngBytes, "")
	s.Put(Attachment{ID: "remote", MIME: "image/jpeg", Name: "dog.jpg", URL: "https://cdn.example.com/dog.jpg"}, nil, "")
	s.Put(Attachment{ID: "doc", MIME: "application/pdf", Name: "report.pdf"}, []byte("%PDF"), "total <b>42</b>")
	s.Put(Attachment{ID: "zip", MIME: "application/zip", Name: "bundle.zip"}, []byte("PK"), "")
	return s
}

func payloadOf(msgs []message.Message) payload.Payload {
	return payload.Payload{Messages: msgs}
}

func TestInline_ImageWithoutVisionIsSkipped(t *testing.T) {
	in := NewInliner(testStore(), zerolog.Nop())

	out := in.Inline(context.Background(), textModel(), payloadOf([]message.Message{
		message.New(role.User, "what is this?", "img"),
	}))

	require.Len(t, out, 1)
	assert.Empty(t, out[0].Images)
	assert.Equal(t, "what is this?\n\n"+SkipNotice([]string{"cat.png"}), out[0].Text)
}

func TestInline_SupportedAttachments(t *testing.T) {
	in := NewInliner(testStore(), zerolog.Nop())

	out := in.Inline(context.Background(), visionModel(), payloadOf([]message.Message{
		message.New(role.User, "look", "img", "remote", "doc"),
	}))

	require.Len(t, out, 1)
	require.Len(t, out[0].Images, 2)

	assert.Equal(t, pngBytes, out[0].Images[0].Data)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", out[0].Images[0].Ref())
	assert.Equal(t, "https://cdn.example.com/dog.jpg", out[0].Images[1].Ref())
	assert.Nil(t, out[0].Images[1].Data)

	assert.Equal(t, "look\n\nATTACHED FILE: report.pdf\n```\ntotal &lt;b&gt;42&lt;/b&gt;\n```", out[0].Text)
}

func TestInline_OneNoticePerMessage(t *testing.T) {
	in := NewInliner(testStore(), zerolog.Nop())

	out := in.Inline(context.Background(), textModel(), payloadOf([]message.Message{
		message.New(role.User, "", "img", "doc", "zip", "missing"),
		message.NewText(role.Assistant, "ok"),
	}))

	require.Len(t, out, 2)
	assert.Equal(t, SkipNotice([]string{"cat.png", "report.pdf", "bundle.zip", "missing"}), out[0].Text)
	assert.Equal(t, "ok", out[1].Text)
	assert.Equal(t, role.Assistant, out[1].Role)
}

func TestInline_SingleBatchLookup(t *testing.T) {
	s := testStore()
	in := NewInliner(s, zerolog.Nop())

	in.Inline(context.Background(), visionModel(), payloadOf([]message.Message{
		message.New(role.User, "a", "img"),
		message.New(role.User, "b", "doc", "img"),
	}))

	assert.Equal(t, 1, s.Lookups())
}

func TestInline_NoAttachmentsNoLookup(t *testing.T) {
	s := testStore()
	in := NewInliner(s, zerolog.Nop())

	out := in.Inline(context.Background(), visionModel(), payloadOf([]message.Message{message.NewText(role.User, "hi")}))

	assert.Equal(t, "hi", out[0].Text)
	assert.Zero(t, s.Lookups())
}

type failingStore struct{ *MemoryStore }

func (*failingStore) ResolveMany(context.Context, []string) (map[string]Attachment, error) {
	return nil, errors.New("store down")
}

func TestInline_StoreFailureDegrades(t *testing.T) {
	in := NewInliner(&failingStore{NewMemoryStore()}, zerolog.Nop())

	out := in.Inline(context.Background(), visionModel(), payloadOf([]message.Message{message.New(role.User, "x", "img")}))

	assert.Equal(t, "x\n\n"+SkipNotice([]string{"img"}), out[0].Text)
}

func TestInline_NilStore(t *testing.T) {
	in := NewInliner(nil, zerolog.Nop())

	out := in.Inline(context.Background(), visionModel(), payloadOf([]message.Message{message.New(role.User, "x", "img")}))

	assert.Equal(t, "x\n\n"+SkipNotice([]string{"img"}), out[0].Text)
}

func TestMessage_TextOnly(t *testing.T) {
	m := Message{Text: "be brief"}
	assert.Equal(t, "be brief", m.TextOnly())

	m.Images = []Image{{Name: "cat.png"}, {Name: "dog.jpg"}}
	assert.Equal(t, "be brief\n\n"+SkipNotice([]string{"cat.png", "dog.jpg"}), m.TextOnly())

	m.Text = ""
	assert.Equal(t, SkipNotice([]string{"cat.png", "dog.jpg"}), m.TextOnly())
}

func TestMessage_IsEmpty(t *testing.T) {
	assert.True(t, Message{Text: "  "}.IsEmpty())
	assert.False(t, Message{Text: "x"}.IsEmpty())
	assert.False(t, Message{Images: []Image{{Name: "a"}}}.IsEmpty())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindImage, KindOf("image/png"))
	assert.Equal(t, KindDocument, KindOf("text/plain; charset=utf-8"))
	assert.Equal(t, KindDocument, KindOf("application/pdf"))
	assert.Equal(t, KindOther, KindOf("application/zip"))
}
