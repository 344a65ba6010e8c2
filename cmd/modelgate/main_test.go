package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/modelgate/pkg/chats/role"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
)

func newProvider(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/models") {
			w.Header().Set("x-ratelimit-remaining-requests", "0")
			w.Header().Set("x-ratelimit-remaining-tokens", "1500")
			w.Header().Set("x-ratelimit-reset-requests", "1h")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"m1","object":"model"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"x","model":"m1","choices":[{"index":0,"message":{"role":"assistant","content":"**hi**"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, url string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "modelgate.yaml")
	data := `
log:
  level: error
assignments:
  default:
    defaults: {text: m1}
providers:
  - id: local
    api_url: ` + url + `
    models:
      - {id: m1, label: Model One, external: true, tools: {stream: true}}
      - {id: m2, label: Model Two}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	return path
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestJoinArgs(t *testing.T) {
	assert.Equal(t, "hello world", joinArgs([]string{"hello", "world"}))
	assert.Empty(t, joinArgs(nil))
}

func TestFmtTokens(t *testing.T) {
	assert.Equal(t, "999", fmtTokens(999))
	assert.Equal(t, "1.5k", fmtTokens(1500))
	assert.Equal(t, "2.0M", fmtTokens(2_000_000))
}

func TestParseUsage(t *testing.T) {
	u, err := parseUsage("external_app")
	require.NoError(t, err)
	assert.Equal(t, models.UsageExternalApp, u)

	_, err = parseUsage("nope")
	require.Error(t, err)
}

func TestChatOptionsConversation(t *testing.T) {
	p := chatOptions{model: "m1", system: "be brief", search: true, stream: true}.conversation().Ask("hi", "a1", "a2")

	require.Len(t, p.Messages, 2)
	assert.Equal(t, "m1", p.Model)
	assert.True(t, p.Stream)
	assert.Equal(t, role.System, p.Messages[0].Role)
	assert.Equal(t, []string{"a1", "a2"}, p.Messages[1].Content.Attachments)
	assert.True(t, p.ToolEnabled(models.ToolWebSearch))

	p = chatOptions{}.conversation().Ask("hi")
	require.Len(t, p.Messages, 1)
	assert.Nil(t, p.Tools)
}

func TestDispatchUnknown(t *testing.T) {
	err := dispatch(context.Background(), "unused.yaml", "frobnicate", nil, &bytes.Buffer{})
	require.ErrorContains(t, err, "unknown command")
}

func TestModelsCommand(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1")

	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), cfg, "models", nil, &out))
	assert.Contains(t, out.String(), "m1")
	assert.Contains(t, out.String(), "Model Two")
	assert.Contains(t, out.String(), "default text")

	out.Reset()
	require.NoError(t, dispatch(context.Background(), cfg, "models", []string{"-usage", "external_app"}, &out))
	assert.Contains(t, out.String(), "m1")
	assert.NotContains(t, out.String(), "m2")
}

func TestStatusCommand(t *testing.T) {
	cfg := writeConfig(t, newProvider(t).URL)

	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), cfg, "status", nil, &out))
	assert.Contains(t, out.String(), models.StatusOnline.String())
	assert.Contains(t, out.String(), "1/2 models online across 1 providers")
	assert.Contains(t, out.String(), "local: 0 requests, 1.5k tokens remaining, exhausted until")
}

func TestRateLimitLine(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	info := &modeladapter.RateLimitInfo{RemainingRequests: 10, RemainingTokens: 2000}
	assert.Equal(t, "p: 10 requests, 2.0k tokens remaining", rateLimitLine("p", info, now))

	info = &modeladapter.RateLimitInfo{RemainingRequests: 0, RequestsReset: now.Add(time.Hour)}
	assert.Contains(t, rateLimitLine("p", info, now), "exhausted until 1:00PM")
}

func TestChatCommand(t *testing.T) {
	cfg := writeConfig(t, newProvider(t).URL)

	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), cfg, "chat", []string{"hello", "there"}, &out))
	assert.Contains(t, out.String(), "**hi**")
	assert.Contains(t, out.String(), "12 in / 3 out")

	err := dispatch(context.Background(), cfg, "chat", nil, &bytes.Buffer{})
	require.ErrorContains(t, err, "prompt is required")
}

func TestChatInteractive(t *testing.T) {
	var (
		mu    sync.Mutex
		turns []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		turns = append(turns, len(body.Messages))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`))
	}))
	t.Cleanup(srv.Close)

	opts := chatOptions{
		model:       "m2",
		interactive: true,
		in:          strings.NewReader("first\n\nsecond\n/reset\nthird\n"),
	}

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), writeConfig(t, srv.URL), opts, &out))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 3, 1}, turns)
	assert.Contains(t, out.String(), "history cleared")
}

func TestChatCommandProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err := dispatch(context.Background(), writeConfig(t, srv.URL), "chat", []string{"-model", "m2", "hi"}, &out)
	require.ErrorContains(t, err, "provider request failed")
	assert.Contains(t, out.String(), "boom")
}
