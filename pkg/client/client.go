// Package client executes requests against one provider adapter on behalf of
// the models the provider owns, and caches the provider's model statuses.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/metrics"
	"github.com/germanamz/modelgate/pkg/modeladapter"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/transport"
)

// Adapter is the provider adapter a Client drives. It is satisfied by
// *modeladapter.ModelAdapter.
type Adapter interface {
	Provider() models.Provider
	Execute(ctx context.Context, req models.Request) models.Response
	ExecuteStream(ctx context.Context, req models.Request, onData models.OnData)
	Sweep(ctx context.Context) map[string]models.Status
}

var _ Adapter = (*modeladapter.ModelAdapter)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSweepTimeout bounds the shared status sweep. Defaults to the transport's
// request timeout.
func WithSweepTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.sweepTimeout = d
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

var _ models.Client = (*Client)(nil)

// Client owns the models of one provider.
type Client struct {
	adapter Adapter
	log     zerolog.Logger
	metrics *metrics.Metrics

	sweeps       singleflight.Group
	sweepTimeout time.Duration
	mu           sync.RWMutex
	statuses     map[string]models.Status
}

// New creates a client over adapter a.
func New(a Adapter, opts ...Option) *Client {
	c := &Client{
		adapter:      a,
		log:          logger.GetLogger(),
		sweepTimeout: transport.DefaultOptions().RequestTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("provider", a.Provider().ID).Logger()
	return c
}

// Provider returns the provider the client talks to.
func (c *Client) Provider() models.Provider { return c.adapter.Provider() }

// Adapter returns the wrapped adapter.
func (c *Client) Adapter() Adapter { return c.adapter }

// Underlying implements models.Client.
func (c *Client) Underlying() models.Client { return c }

// RateLimit returns the last rate limit info observed by the adapter, or nil
// when the adapter does not track it.
func (c *Client) RateLimit() *modeladapter.RateLimitInfo {
	if rl, ok := c.adapter.(interface {
		LastRateLimitInfo() *modeladapter.RateLimitInfo
	}); ok {
		return rl.LastRateLimitInfo()
	}
	return nil
}

// SendRequest implements models.Client.
func (c *Client) SendRequest(ctx context.Context, req models.Request) (models.Response, error) {
	if err := c.check(req); err != nil {
		return models.Response{}, err
	}
	return c.adapter.Execute(ctx, req), nil
}

// SendStreamRequest implements models.Client. Models that cannot stream are
// served synchronously and onData receives exactly one, terminal, event.
func (c *Client) SendStreamRequest(ctx context.Context, req models.Request, onData models.OnData) error {
	if err := c.check(req); err != nil {
		return err
	}

	if !req.Model.IsStreamable() {
		c.log.Debug().Str("model", req.Model.ID()).Msg("model cannot stream, falling back to sync")
		resp := c.adapter.Execute(ctx, req)
		resp.IsDone = true
		onData(resp)
		return nil
	}

	c.adapter.ExecuteStream(ctx, req, onData)
	return nil
}

// Status implements models.Client. The first call performs one sweep of the
// provider, shared by concurrent callers; later calls read the cache. Ids the
// provider did not report are UNKNOWN, as is everything for a caller whose
// context ends before the sweep does.
func (c *Client) Status(ctx context.Context, m *models.Model) models.Status {
	if m == nil {
		return models.StatusUnknown
	}
	return StatusOf(c.cached(ctx), m)
}

// Sweep runs an uncached sweep. It does not touch the status cache.
func (c *Client) Sweep(ctx context.Context) map[string]models.Status {
	c.metrics.StatusSweep(c.adapter.Provider().ID)
	out := c.adapter.Sweep(ctx)
	c.log.Debug().Int("models", len(out)).Msg("status sweep")
	return out
}

func (c *Client) snapshot() map[string]models.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statuses
}

func (c *Client) cached(ctx context.Context) map[string]models.Status {
	if s := c.snapshot(); s != nil {
		return s
	}
	if ctx.Err() != nil {
		return nil
	}

	ch := c.sweeps.DoChan("sweep", func() (any, error) {
		if s := c.snapshot(); s != nil {
			return s, nil
		}

		// The sweep belongs to every waiter, not to the caller that started it.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sweepTimeout)
		defer cancel()

		s := c.Sweep(sctx)
		if sctx.Err() != nil {
			c.log.Warn().Dur("timeout", c.sweepTimeout).Msg("status sweep timed out, not cached")
			return s, nil
		}

		c.mu.Lock()
		if c.statuses == nil {
			c.statuses = s
		}
		s = c.statuses
		c.mu.Unlock()

		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil
	case res := <-ch:
		s, _ := res.Val.(map[string]models.Status)
		return s
	}
}

// StatusOf picks m's status from a sweep result: the exact id first, then
// any id that IDMatches. Unlisted models are UNKNOWN.
func StatusOf(statuses map[string]models.Status, m *models.Model) models.Status {
	if s, ok := statuses[m.ID()]; ok {
		return s
	}
	for id, s := range statuses {
		if m.IDMatches(id) {
			return s
		}
	}
	return models.StatusUnknown
}

func (c *Client) check(req models.Request) error {
	if req.Model == nil {
		return fmt.Errorf("client: %w", models.ErrNoModel)
	}

	owner, err := req.Model.Client()
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if Unwrap(owner) != models.Client(c) {
		return fmt.Errorf("client: model %q is not owned by provider %q: %w",
			req.Model.ID(), c.adapter.Provider().ID, models.ErrOwnership)
	}

	return nil
}

// Unwrap follows Underlying until it reaches a client that returns itself.
func Unwrap(c models.Client) models.Client {
	for c != nil {
		u := c.Underlying()
		if u == nil || u == c {
			return c
		}
		c = u
	}
	return nil
}
