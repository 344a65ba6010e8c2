package modeladapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/modelgate/pkg/models"
)

func TestFactories(t *testing.T) {
	f := Factories{}
	built := ""
	f.Register("Generic", func(p models.Provider, _ Deps) (*ModelAdapter, error) {
		built = p.ID
		return &ModelAdapter{provider: p}, nil
	})
	f.Register("broken", func(models.Provider, Deps) (*ModelAdapter, error) {
		return nil, errors.New("missing credential")
	})

	assert.Equal(t, []string{"broken", "generic"}, f.Families())

	_, err := f.Lookup("")
	require.NoError(t, err)

	a, err := f.Build(models.Provider{ID: "local"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "local", built)
	assert.Equal(t, "local", a.Provider().ID)

	_, err = f.Build(models.Provider{ID: "x", Family: "cohere"}, Deps{})
	require.ErrorIs(t, err, ErrUnknownFamily)
	assert.Contains(t, err.Error(), `provider "x"`)

	_, err = f.Build(models.Provider{ID: "y", Family: "broken"}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing credential")
}
