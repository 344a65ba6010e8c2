package statusstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/germanamz/modelgate/pkg/client"
	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/models"
)

// Sweeper runs an uncached status sweep. *client.Client implements it.
type Sweeper interface {
	Sweep(ctx context.Context) map[string]models.Status
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the refresher logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Refresher) { r.log = l }
}

// WithConcurrency bounds the number of providers swept at once. Zero or
// less means unbounded.
func WithConcurrency(n int) Option {
	return func(r *Refresher) { r.limit = n }
}

// Refresher sweeps providers and persists the status of every model.
type Refresher struct {
	store Store
	log   zerolog.Logger
	limit int
}

// NewRefresher creates a refresher writing into store.
func NewRefresher(store Store, opts ...Option) *Refresher {
	r := &Refresher{store: store, log: logger.GetLogger()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result summarizes one refresh.
type Result struct {
	Providers int
	Models    int
	Online    int
}

// Refresh groups the catalogue's models by provider client, sweeps each
// client once, concurrently, and persists every model's status. Models whose
// client cannot be resolved are stored as UNKNOWN.
func (r *Refresher) Refresh(ctx context.Context, cat *models.Map) (Result, error) {
	groups := make(map[models.Client][]*models.Model)
	var order []models.Client
	var orphans []*models.Model

	for _, m := range cat.Models().All() {
		c, err := m.Client()
		if err != nil {
			orphans = append(orphans, m)
			continue
		}
		owner := client.Unwrap(c)
		if _, ok := groups[owner]; !ok {
			order = append(order, owner)
		}
		groups[owner] = append(groups[owner], m)
	}

	results := make([]Result, len(order))

	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for i, owner := range order {
		ms := groups[owner]
		g.Go(func() error {
			res, err := r.refreshOne(gctx, owner, ms)
			results[i] = res
			return err
		})
	}

	err := g.Wait()

	var total Result
	for _, res := range results {
		total.Providers += res.Providers
		total.Models += res.Models
		total.Online += res.Online
	}

	for _, m := range orphans {
		if serr := r.store.SetStatus(ctx, m.ID(), models.StatusUnknown); serr != nil && err == nil {
			err = fmt.Errorf("statusstore: set %q: %w", m.ID(), serr)
		}
		total.Models++
	}

	r.log.Info().
		Int("providers", total.Providers).
		Int("models", total.Models).
		Int("online", total.Online).
		Msg("statuses refreshed")

	return total, err
}

func (r *Refresher) refreshOne(ctx context.Context, owner models.Client, ms []*models.Model) (Result, error) {
	sw, ok := owner.(Sweeper)
	if !ok {
		return Result{}, fmt.Errorf("statusstore: client %T cannot sweep", owner)
	}

	statuses := sw.Sweep(ctx)
	res := Result{Providers: 1}

	for _, m := range ms {
		st := client.StatusOf(statuses, m)
		if err := r.store.SetStatus(ctx, m.ID(), st); err != nil {
			return res, fmt.Errorf("statusstore: set %q: %w", m.ID(), err)
		}
		res.Models++
		if st == models.StatusOnline {
			res.Online++
		}
	}

	return res, nil
}
