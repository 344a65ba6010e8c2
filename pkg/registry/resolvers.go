package registry

import (
	"context"
	"sync"

	"github.com/germanamz/modelgate/pkg/client"
	"github.com/germanamz/modelgate/pkg/models"
)

// providerClientResolver resolves the per-model wrapper around the provider
// client. The wrapper is created once.
type providerClientResolver struct {
	reg      *Registry
	provider string
	model    *models.Model

	once sync.Once
	mc   *client.ModelClient
	err  error
}

func (r *providerClientResolver) ResolveClient() (models.Client, error) {
	r.once.Do(func() {
		c, err := r.reg.Client(r.provider)
		if err != nil {
			r.err = err
			return
		}
		r.mc = client.NewModelClient(c, r.model)
	})
	if r.err != nil {
		return nil, r.err
	}
	return r.mc, nil
}

// clientStatusResolver reads a model's status from its provider client's cache.
type clientStatusResolver struct {
	reg      *Registry
	provider string
}

func (r *clientStatusResolver) ResolveStatus(ctx context.Context, m *models.Model) models.Status {
	c, err := r.reg.Client(r.provider)
	if err != nil {
		return models.StatusUnknown
	}
	return c.Status(ctx, m)
}
