package models

import "context"

// ClientResolver lazily produces the client that executes a model's requests.
type ClientResolver interface {
	ResolveClient() (Client, error)
}

// StatusResolver lazily resolves a model's availability.
type StatusResolver interface {
	ResolveStatus(ctx context.Context, m *Model) Status
}

// Context binds a Model to its owning Provider and its lazy resolvers.
// It is created once by the registry and never rebound.
type Context struct {
	provider Provider
	clients  ClientResolver
	statuses StatusResolver
}

// NewContext creates a binding context.
func NewContext(p Provider, clients ClientResolver, statuses StatusResolver) *Context {
	return &Context{provider: p, clients: clients, statuses: statuses}
}

// Provider returns the owning provider.
func (c *Context) Provider() Provider { return c.provider }

// ResolveClient asks the client resolver for the owning client.
func (c *Context) ResolveClient() (Client, error) {
	return c.clients.ResolveClient()
}

// ResolveStatus asks the status resolver for the model's status. A context
// without a status resolver reports StatusUnknown.
func (c *Context) ResolveStatus(ctx context.Context, m *Model) Status {
	if c.statuses == nil {
		return StatusUnknown
	}
	return c.statuses.ResolveStatus(ctx, m)
}
