// Package registry builds the model catalogue from configuration and binds
// every model to the client of its provider.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/client"
	"github.com/germanamz/modelgate/pkg/config"
	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/metrics"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/providers"
	"github.com/germanamz/modelgate/pkg/transport"
)

// ErrUnknownProvider is returned for provider ids that are not configured or
// not active.
var ErrUnknownProvider = errors.New("unknown provider")

// Option configures a Registry.
type Option func(*Registry)

// WithFactories replaces the adapter families. Defaults to providers.Defaults().
func WithFactories(f modeladapter.Factories) Option {
	return func(r *Registry) { r.factories = f }
}

// WithAttachments sets the attachment store handed to every adapter.
func WithAttachments(s attachments.Store) Option {
	return func(r *Registry) { r.attachments = s }
}

// WithHTTPClient shares one resty client across adapters.
func WithHTTPClient(c *resty.Client) Option {
	return func(r *Registry) { r.http = c }
}

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics sets the metrics sink of the provider clients.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

type entry struct {
	provider models.Provider
	adapter  *modeladapter.ModelAdapter
}

// Registry owns the catalogue of every usage type and one client per provider.
type Registry struct {
	factories   modeladapter.Factories
	attachments attachments.Store
	http        *resty.Client
	log         zerolog.Logger
	metrics     *metrics.Metrics
	assignments map[models.UsageType]config.Assignment
	transport   transport.Options

	entries []entry
	byID    map[string]int

	mu         sync.Mutex
	catalogues map[models.UsageType]*models.Map

	clientsMu sync.Mutex
	clients   map[string]*client.Client
}

// New validates cfg and builds the adapter of every active provider.
// Configuration problems are returned here rather than on first use.
func New(cfg config.Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	r := &Registry{
		log:         logger.GetLogger(),
		byID:        make(map[string]int),
		catalogues:  make(map[models.UsageType]*models.Map),
		clients:     make(map[string]*client.Client),
		assignments: make(map[models.UsageType]config.Assignment),
	}
	for _, o := range opts {
		o(r)
	}
	if r.factories == nil {
		r.factories = providers.Defaults()
	}

	topts, err := cfg.TransportOptions()
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	r.transport = topts

	for _, u := range models.UsageTypes {
		r.assignments[u] = cfg.AssignmentFor(u)
	}

	deps := modeladapter.Deps{
		HTTP:        r.http,
		Transport:   topts,
		Attachments: r.attachments,
		Logger:      &r.log,
	}

	for _, pc := range cfg.Providers {
		if !pc.IsActive() {
			r.log.Debug().Str("provider", pc.ID).Msg("provider inactive, skipped")
			continue
		}

		p := pc.Provider()
		a, err := r.factories.Build(p, deps)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}

		r.byID[p.ID] = len(r.entries)
		r.entries = append(r.entries, entry{provider: a.Provider(), adapter: a})
	}

	return r, nil
}

// Providers returns the active providers in configuration order.
func (r *Registry) Providers() []models.Provider {
	out := make([]models.Provider, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.provider)
	}
	return out
}

// Models returns the catalogue of usage type u. It is built on first use and
// cached until Rebuild.
func (r *Registry) Models(u models.UsageType) (*models.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.catalogues[u]; ok {
		return m, nil
	}

	m, err := r.build(u)
	if err != nil {
		return nil, err
	}
	r.catalogues[u] = m

	return m, nil
}

// Rebuild drops every cached catalogue. Provider clients and their status
// caches are kept.
func (r *Registry) Rebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.catalogues)
}

func (r *Registry) build(u models.UsageType) (*models.Map, error) {
	out := models.NewMap(u)

	for _, e := range r.entries {
		statuses := &clientStatusResolver{reg: r, provider: e.provider.ID}

		for _, m := range e.adapter.Models() {
			if u == models.UsageExternalApp && !m.AllowedExternally() {
				continue
			}

			ctx := models.NewContext(e.provider, &providerClientResolver{reg: r, provider: e.provider.ID, model: m}, statuses)
			if err := m.Bind(ctx); err != nil {
				return nil, fmt.Errorf("registry: %w", err)
			}

			if out.Add(m) {
				r.log.Warn().Str("model", m.ID()).Str("provider", e.provider.ID).
					Msg("duplicate model id, last registered wins")
			}
		}
	}

	a := r.assignments[u]
	for _, capability := range slices.Sorted(maps.Keys(a.Defaults)) {
		if id := a.Defaults[capability]; !out.SetDefault(capability, id) {
			r.log.Warn().Str("usage", u.String()).Str("capability", capability).Str("model", id).
				Msg("default model not in catalogue, ignored")
		}
	}
	for _, capability := range slices.Sorted(maps.Keys(a.System)) {
		if id := a.System[capability]; !out.SetSystem(capability, id) {
			r.log.Warn().Str("usage", u.String()).Str("capability", capability).Str("model", id).
				Msg("system model not in catalogue, ignored")
		}
	}

	r.log.Debug().Str("usage", u.String()).Int("models", out.Models().Len()).Msg("catalogue built")

	return out, nil
}

// Client returns the memoized client of a provider, shared by every usage
// type.
func (r *Registry) Client(providerID string) (*client.Client, error) {
	idx, ok := r.byID[providerID]
	if !ok {
		return nil, fmt.Errorf("registry: provider %q: %w", providerID, ErrUnknownProvider)
	}

	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()

	if c, ok := r.clients[providerID]; ok {
		return c, nil
	}

	c := client.New(r.entries[idx].adapter,
		client.WithLogger(r.log),
		client.WithMetrics(r.metrics),
		client.WithSweepTimeout(r.transport.RequestTimeout),
	)
	r.clients[providerID] = c

	return c, nil
}

// Clients returns the client of every active provider.
func (r *Registry) Clients() []*client.Client {
	out := make([]*client.Client, 0, len(r.entries))
	for _, e := range r.entries {
		c, err := r.Client(e.provider.ID)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}
