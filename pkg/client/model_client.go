package client

import (
	"context"

	"github.com/germanamz/modelgate/pkg/models"
)

var _ models.Client = (*ModelClient)(nil)

// ModelClient is the per-model view of a provider Client.
type ModelClient struct {
	client *Client
	model  *models.Model
}

// NewModelClient wraps c for model m.
func NewModelClient(c *Client, m *models.Model) *ModelClient {
	return &ModelClient{client: c, model: m}
}

// Model returns the wrapped model.
func (mc *ModelClient) Model() *models.Model { return mc.model }

// Underlying returns the provider client.
func (mc *ModelClient) Underlying() models.Client { return mc.client }

// SendRequest implements models.Client.
func (mc *ModelClient) SendRequest(ctx context.Context, req models.Request) (models.Response, error) {
	return mc.client.SendRequest(ctx, req)
}

// SendStreamRequest implements models.Client.
func (mc *ModelClient) SendStreamRequest(ctx context.Context, req models.Request, onData models.OnData) error {
	return mc.client.SendStreamRequest(ctx, req, onData)
}

// Status implements models.Client.
func (mc *ModelClient) Status(ctx context.Context, m *models.Model) models.Status {
	return mc.client.Status(ctx, m)
}
