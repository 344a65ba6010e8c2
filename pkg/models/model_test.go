package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

type clientFunc func() (Client, error)

func (f clientFunc) ResolveClient() (Client, error) { return f() }

type statusFunc func(context.Context, *Model) Status

func (f statusFunc) ResolveStatus(ctx context.Context, m *Model) Status { return f(ctx, m) }

func TestIDMatches(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"gpt-4.1", "gpt-4.1", true},
		{"openai/gpt-4.1", "gpt-4.1", true},
		{"gpt-4.1", "openai/gpt-4.1", true},
		{"gpt-4.1", "gpt-4", false},
		{"openai/gpt-4.1", "azure/gpt-4.1", false},
		{"", "", false},
		{"gpt-4.1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, IDMatches(tt.a, tt.b))
		})
	}
}

func TestModel_Capabilities(t *testing.T) {
	m := NewModel(Record{
		ID:    "demo-1",
		Input: []string{MethodText, MethodImage},
		Tools: map[string]bool{ToolStream: true, ToolVision: true},
	})

	assert.Equal(t, "demo-1", m.Label())
	assert.True(t, m.Active())
	assert.True(t, m.IsStreamable())
	assert.True(t, m.CanSeeImages())
	assert.False(t, m.CanReadFiles())
	assert.False(t, m.AllowedExternally())

	noImage := NewModel(Record{ID: "x", Input: []string{MethodText}, Tools: map[string]bool{ToolVision: true}})
	assert.False(t, noImage.CanSeeImages())

	inactive := NewModel(Record{ID: "y", Active: boolPtr(false)})
	assert.False(t, inactive.Active())
}

func TestModel_IsImmutable(t *testing.T) {
	rec := Record{ID: "a", Input: []string{MethodText}, Tools: map[string]bool{ToolStream: true}}
	m := NewModel(rec)

	rec.Input[0] = "changed"
	rec.Tools[ToolStream] = false

	assert.Equal(t, []string{MethodText}, m.InputMethods())
	assert.True(t, m.IsStreamable())

	tools := m.Tools()
	tools[ToolStream] = false
	assert.True(t, m.IsStreamable())
}

func TestModel_UnboundAccessors(t *testing.T) {
	m := NewModel(Record{ID: "a"})

	assert.False(t, m.IsBound())

	_, err := m.Provider()
	require.ErrorIs(t, err, ErrUnbound)

	_, err = m.Client()
	require.ErrorIs(t, err, ErrUnbound)

	st, err := m.Status(context.Background())
	require.ErrorIs(t, err, ErrUnbound)
	assert.Equal(t, StatusUnknown, st)
}

func TestModel_BindOnce(t *testing.T) {
	m := NewModel(Record{ID: "a"})
	p := Provider{ID: "demo", Family: "generic"}

	resolved := 0
	ctx := NewContext(p,
		clientFunc(func() (Client, error) { resolved++; return nil, nil }),
		statusFunc(func(context.Context, *Model) Status { return StatusOnline }),
	)

	require.NoError(t, m.Bind(ctx))
	assert.True(t, m.IsBound())

	err := m.Bind(NewContext(Provider{ID: "other"}, nil, nil))
	require.ErrorIs(t, err, ErrAlreadyBound)

	got, err := m.Provider()
	require.NoError(t, err)
	assert.Equal(t, "demo", got.ID)

	_, err = m.Client()
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, st)
}

func TestModel_BindNil(t *testing.T) {
	m := NewModel(Record{ID: "a"})
	require.Error(t, m.Bind(nil))
	assert.False(t, m.IsBound())
}

func TestContext_NoStatusResolver(t *testing.T) {
	m := NewModel(Record{ID: "a"})
	require.NoError(t, m.Bind(NewContext(Provider{ID: "p"}, nil, nil)))

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, st)
}

func TestProvider_Endpoints(t *testing.T) {
	p := Provider{APIURL: "https://api.example.com/v1/"}
	assert.Equal(t, "https://api.example.com/v1", p.APIEndpoint())
	assert.Equal(t, "https://api.example.com/v1", p.StreamEndpoint())
	assert.Equal(t, "https://api.example.com/v1", p.PingEndpoint())

	p.StreamURL = "https://stream.example.com"
	p.PingURL = "https://ping.example.com/"
	assert.Equal(t, "https://stream.example.com", p.StreamEndpoint())
	assert.Equal(t, "https://ping.example.com", p.PingEndpoint())
}

func TestProvider_Require(t *testing.T) {
	p := Provider{ID: "demo", Family: "openai"}

	v, err := p.Require("adapter")
	require.NoError(t, err)
	assert.Equal(t, "openai", v)

	_, err = p.Require("credential")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "credential", cfgErr.Key)
	assert.Contains(t, err.Error(), `provider "demo"`)

	_, err = p.Require("nope")
	require.Error(t, err)
}

func TestErrorResponse(t *testing.T) {
	r := ErrorResponse(errors.New("boom"))

	assert.True(t, r.IsDone)
	assert.True(t, r.Failed())
	assert.Equal(t, "boom", r.Error)
	assert.Equal(t, "INTERNAL ERROR: boom", r.Text())
	assert.Equal(t, "boom", r.Content.Error())
	assert.Nil(t, r.Usage)
}

func TestParseUsageType(t *testing.T) {
	u, err := ParseUsageType("external_app")
	require.NoError(t, err)
	assert.Equal(t, UsageExternalApp, u)

	u, err = ParseUsageType(" Default ")
	require.NoError(t, err)
	assert.Equal(t, UsageDefault, u)

	_, err = ParseUsageType("internal")
	require.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("online")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, s)

	_, err = ParseStatus("maybe")
	require.Error(t, err)
}
