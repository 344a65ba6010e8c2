package gemini_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/chats/content"
	"github.com/germanamz/modelgate/pkg/chats/message"
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/chats/role"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/providers/gemini"
)

func newTestServer(t *testing.T, handler http.HandlerFunc, rec models.Record) *modeladapter.ModelAdapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := attachments.NewMemoryStore()
	store.Put(attachments.Attachment{ID: "img", Kind: attachments.KindImage, MIME: "image/png", Name: "p.png"}, []byte{1, 2, 3}, "")

	a, err := gemini.New(models.Provider{
		ID:         "google",
		Family:     "gemini",
		Credential: "test-key",
		APIURL:     srv.URL,
		Models:     []models.Record{rec},
	}, modeladapter.Deps{Attachments: store})
	require.NoError(t, err)

	return a
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	return req
}

func TestExecute(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		req := readBody(t, r)

		sys, _ := req["systemInstruction"].(map[string]any)
		sysParts, _ := sys["parts"].([]any)
		require.Len(t, sysParts, 1)
		assert.Equal(t, map[string]any{"text": "be kind"}, sysParts[0])

		contents, _ := req["contents"].([]any)
		require.Len(t, contents, 2)
		first, _ := contents[0].(map[string]any)
		second, _ := contents[1].(map[string]any)
		assert.Equal(t, "user", first["role"])
		assert.Equal(t, "model", second["role"])

		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role":"model","parts":[{"text":"thinking...","thought":true},{"text":"Sure."}]},
				"finishReason": "STOP",
				"groundingMetadata": {"groundingChunks":[{"web":{"uri":"https://example.com","title":"ex"}}]}
			}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 2}
		}`))
	}, models.Record{ID: "gemini-2.5-flash"})

	m := a.Models()[0]
	resp := a.Execute(context.Background(), models.NewRequest(m, payload.Payload{Messages: []message.Message{
		message.NewText(role.System, "be kind"),
		message.NewText(role.User, "hi"),
		message.NewText(role.Assistant, "hello"),
	}}))

	require.False(t, resp.Failed(), resp.Error)
	assert.Equal(t, "Sure.", resp.Text())
	assert.Equal(t, "thinking...", resp.Content[content.KeyReasoning])
	assert.Equal(t, []string{"https://example.com"}, resp.Content[content.KeyCitations])
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 8, resp.Usage.PromptTokens)
	assert.Equal(t, 2, resp.Usage.CompletionTokens)
}

func TestExecute_InlineImage(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		contents, _ := req["contents"].([]any)
		first, _ := contents[0].(map[string]any)
		parts, _ := first["parts"].([]any)
		require.Len(t, parts, 2)

		img, _ := parts[1].(map[string]any)
		data, _ := img["inlineData"].(map[string]any)
		assert.Equal(t, "image/png", data["mimeType"])
		assert.Equal(t, "AQID", data["data"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}, models.Record{ID: "gemini-2.5-flash", Input: []string{"text", "image"}, Tools: map[string]bool{"vision": true}})

	m := a.Models()[0]
	resp := a.Execute(context.Background(), models.NewRequest(m, payload.Payload{Messages: []message.Message{
		message.New(role.User, "see", "img"),
	}}))

	require.False(t, resp.Failed(), resp.Error)
}

func TestExecute_SystemImageNamedInNotice(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		sys, _ := req["systemInstruction"].(map[string]any)
		sysParts, _ := sys["parts"].([]any)
		require.Len(t, sysParts, 1)
		assert.Equal(t, map[string]any{"text": "rules\n\n" + attachments.SkipNotice([]string{"p.png"})}, sysParts[0])

		contents, _ := req["contents"].([]any)
		assert.Len(t, contents, 1)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}, models.Record{ID: "gemini-2.5-flash", Input: []string{"text", "image"}, Tools: map[string]bool{"vision": true}})

	m := a.Models()[0]
	resp := a.Execute(context.Background(), models.NewRequest(m, payload.Payload{Messages: []message.Message{
		message.New(role.System, "rules", "img"),
		message.NewText(role.User, "hi"),
	}}))

	require.False(t, resp.Failed(), resp.Error)
}

func TestExecute_Blocked(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}, models.Record{ID: "gemini-2.5-flash"})

	m := a.Models()[0]
	resp := a.Execute(context.Background(), models.NewRequest(m, payload.Payload{Messages: []message.Message{
		message.NewText(role.User, "x"),
	}}))

	assert.True(t, resp.Failed())
	assert.Equal(t, "gemini: prompt blocked: SAFETY", resp.Error)
}

func TestSearchEnabled(t *testing.T) {
	capable := models.NewModel(models.Record{ID: "g", Tools: map[string]bool{"web_search": true}})
	plain := models.NewModel(models.Record{ID: "g"})

	tests := []struct {
		name  string
		model *models.Model
		tools map[string]bool
		want  bool
	}{
		{"capable, tools omitted", capable, nil, true},
		{"capable, enabled", capable, map[string]bool{"web_search": true}, true},
		{"capable, enumerated without search", capable, map[string]bool{}, false},
		{"capable, disabled", capable, map[string]bool{"web_search": false}, false},
		{"not capable, tools omitted", plain, nil, true},
		{"not capable, disabled", plain, map[string]bool{"web_search": false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.NewRequest(tt.model, payload.Payload{Tools: tt.tools})
			assert.Equal(t, tt.want, gemini.SearchEnabled(req))
		})
	}
}

func TestConvert_SearchTool(t *testing.T) {
	var tools []any
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		tools, _ = req["tools"].([]any)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}, models.Record{ID: "gemini-2.5-pro", Tools: map[string]bool{"web_search": true}})

	m := a.Models()[0]
	a.Execute(context.Background(), models.NewRequest(m, payload.Payload{
		Messages: []message.Message{message.NewText(role.User, "news?")},
	}))

	require.Len(t, tools, 1)
	assert.Equal(t, map[string]any{"google_search": map[string]any{}}, tools[0])
}

func TestExecuteStream(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range []string{
			`{"candidates":[{"content":{"parts":[{"text":"One"}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":" two"}]}}],"usageMetadata":{"promptTokenCount":4}}`,
			`{"candidates":[{"content":{"parts":[{"text":" three"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":3}}`,
		} {
			_, _ = fmt.Fprintf(w, "data: %s\r\n\r\n", ev)
		}
	}, models.Record{ID: "gemini-2.5-flash"})

	m := a.Models()[0]
	var events []models.Response
	a.ExecuteStream(context.Background(), models.NewRequest(m, payload.Payload{Messages: []message.Message{
		message.NewText(role.User, "count"),
	}}), func(r models.Response) bool {
		events = append(events, r)
		return true
	})

	require.Len(t, events, 3)
	assert.Equal(t, "One", events[0].Text())
	assert.Equal(t, " two", events[1].Text())
	assert.True(t, events[2].IsDone)
	assert.Equal(t, " three", events[2].Text())
	require.NotNil(t, events[2].Usage)
	assert.Equal(t, 4, events[2].Usage.PromptTokens)
	assert.Equal(t, 3, events[2].Usage.CompletionTokens)
}

func TestSweep(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-2.5-flash"}]}`))
	}, models.Record{ID: "gemini-2.5-flash"})

	st := a.Sweep(context.Background())
	assert.Equal(t, models.StatusOnline, st["gemini-2.5-flash"])
}
