package message

import (
	"encoding/json"
	"testing"

	"github.com/germanamz/modelgate/pkg/chats/role"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewText(t *testing.T) {
	msg := NewText(role.Assistant, "hi there")

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "hi there", msg.Content.Text)
	assert.False(t, msg.HasAttachments())
}

func TestNew_WithAttachments(t *testing.T) {
	msg := New(role.User, "look", "att-1", "att-2")

	assert.True(t, msg.HasAttachments())
	assert.Equal(t, []string{"att-1", "att-2"}, msg.Content.Attachments)
}

func TestMessage_IsBlank(t *testing.T) {
	assert.True(t, NewText(role.User, "  \n").IsBlank())
	assert.False(t, NewText(role.User, "x").IsBlank())
	assert.False(t, New(role.User, "", "att-1").IsBlank())
}

func TestMessage_UnmarshalInboundShape(t *testing.T) {
	raw := `{"role":"user","content":{"text":"hello","attachments":["a1"]}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, role.User, msg.Role)
	assert.Equal(t, "hello", msg.Content.Text)
	assert.Equal(t, []string{"a1"}, msg.Content.Attachments)
}
