package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	c := Text("hello")
	assert.Equal(t, "hello", c.Text())
	assert.Empty(t, c.Error())
}

func TestFailure(t *testing.T) {
	c := Failure("connection reset")

	assert.Equal(t, "INTERNAL ERROR: connection reset", c.Text())
	assert.Equal(t, "connection reset", c.Error())
}

func TestWith_DoesNotMutate(t *testing.T) {
	c := Text("a")
	d := c.With(KeyReasoning, "because")

	assert.Nil(t, c[KeyReasoning])
	assert.Equal(t, "because", d.String(KeyReasoning))
	assert.Equal(t, "a", d.Text())
}

func TestIsEmpty(t *testing.T) {
	var nilContent Content

	assert.True(t, nilContent.IsEmpty())
	assert.True(t, Text("").IsEmpty())
	assert.False(t, Text("x").IsEmpty())
	assert.False(t, Content{KeyReasoning: "r"}.IsEmpty())
}

func TestText_NonStringValue(t *testing.T) {
	c := Content{KeyText: 42}
	assert.Empty(t, c.Text())
}
