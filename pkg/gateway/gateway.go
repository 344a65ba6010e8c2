// Package gateway is the entry point of the library: it resolves the model a
// request targets, dispatches it to the owning client and records usage.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/metrics"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
)

// Catalogue provides the models of a usage type. It is satisfied by
// *registry.Registry.
type Catalogue interface {
	Models(u models.UsageType) (*models.Map, error)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder sets the usage recorder. Defaults to usage.Discard.
func WithRecorder(r usage.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the gateway logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithUsageType sets the usage type requests are resolved against.
// Defaults to models.UsageDefault.
func WithUsageType(u models.UsageType) Option {
	return func(g *Gateway) { g.usage = u }
}

// Gateway dispatches requests to the clients of the catalogue's models.
type Gateway struct {
	catalogue Catalogue
	recorder  usage.Recorder
	metrics   *metrics.Metrics
	log       zerolog.Logger
	usage     models.UsageType
	newID     func() string
}

// New creates a gateway over catalogue c.
func New(c Catalogue, opts ...Option) *Gateway {
	g := &Gateway{
		catalogue: c,
		recorder:  usage.Discard,
		log:       logger.GetLogger(),
		usage:     models.UsageDefault,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// AvailableModels returns the catalogue of usage type u, or of the gateway's
// usage type when u is omitted.
func (g *Gateway) AvailableModels(u ...models.UsageType) (*models.Map, error) {
	cat, err := g.catalogue.Models(g.usageOf(u))
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	return cat, nil
}

// Model returns the model matching id, or nil.
func (g *Gateway) Model(id string, u ...models.UsageType) *models.Model {
	m, _ := g.ModelOrFail(id, u...)
	return m
}

// ModelOrFail returns the model matching id. It fails with
// models.ErrModelMissing for an empty id and models.ErrModelNotAvailable when
// nothing matches.
func (g *Gateway) ModelOrFail(id string, u ...models.UsageType) (*models.Model, error) {
	if id == "" {
		return nil, fmt.Errorf("gateway: %w", models.ErrModelMissing)
	}

	cat, err := g.AvailableModels(u...)
	if err != nil {
		return nil, err
	}

	m := cat.Models().Find(id)
	if m == nil {
		return nil, fmt.Errorf("gateway: model %q: %w", id, models.ErrModelNotAvailable)
	}

	return m, nil
}

// Status returns the cached availability of the model matching id.
func (g *Gateway) Status(ctx context.Context, id string) (models.Status, error) {
	m, err := g.ModelOrFail(id)
	if err != nil {
		return models.StatusUnknown, err
	}
	return m.Status(ctx)
}

// SendRequest resolves and executes req synchronously. Provider failures are
// reported in the Response; the error covers resolution problems only.
func (g *Gateway) SendRequest(ctx context.Context, req models.Request) (models.Response, error) {
	d, err := g.dispatch(req, metrics.ModeSync)
	if err != nil {
		return models.Response{}, err
	}

	resp, err := d.client.SendRequest(ctx, d.req)
	if err != nil {
		return models.Response{}, fmt.Errorf("gateway: %w", err)
	}

	d.finish(ctx, resp, 0)

	return resp, nil
}

// SendStreamRequest resolves req and streams its events to onData on the
// caller's goroutine.
func (g *Gateway) SendStreamRequest(ctx context.Context, req models.Request, onData models.OnData) error {
	d, err := g.dispatch(req, metrics.ModeStream)
	if err != nil {
		return err
	}

	var (
		terminal models.Response
		done     bool
		events   int
	)
	err = d.client.SendStreamRequest(ctx, d.req, func(r models.Response) bool {
		events++
		g.metrics.StreamEvent(d.provider)
		if r.IsDone {
			terminal, done = r, true
		}
		return onData(r)
	})
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	if done {
		d.finish(ctx, terminal, events)
	} else {
		d.log.Debug().Int("events", events).Msg("stream stopped by caller")
		g.metrics.RecordRequest(d.provider, d.req.Model.ID(), d.mode, false, time.Since(d.start))
	}

	return nil
}

// SendPayload executes a raw payload synchronously.
func (g *Gateway) SendPayload(ctx context.Context, p payload.Payload) (models.Response, error) {
	return g.SendRequest(ctx, models.Request{Payload: p})
}

// StreamPayload streams a raw payload.
func (g *Gateway) StreamPayload(ctx context.Context, p payload.Payload, onData models.OnData) error {
	return g.SendStreamRequest(ctx, models.Request{Payload: p}, onData)
}

// resolve fills req.Model. An explicit model must be bound; otherwise the
// payload's model id is looked up in the catalogue.
func (g *Gateway) resolve(req models.Request) (models.Request, error) {
	if req.Model != nil {
		if !req.Model.IsBound() {
			return req, fmt.Errorf("gateway: model %q: %w", req.Model.ID(), models.ErrNoModel)
		}
		return req, nil
	}

	m, err := g.ModelOrFail(req.Payload.ModelID())
	if err != nil {
		return req, err
	}
	req.Model = m

	return req, nil
}

type dispatch struct {
	g        *Gateway
	req      models.Request
	client   models.Client
	provider string
	mode     string
	id       string
	start    time.Time
	log      zerolog.Logger
}

func (g *Gateway) dispatch(req models.Request, mode string) (*dispatch, error) {
	req, err := g.resolve(req)
	if err != nil {
		return nil, err
	}

	c, err := req.Model.Client()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	p, err := req.Model.Provider()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	id := g.newID()
	d := &dispatch{
		g:        g,
		req:      req,
		client:   c,
		provider: p.ID,
		mode:     mode,
		id:       id,
		start:    time.Now(),
		log: g.log.With().
			Str("request_id", id).
			Str("provider", p.ID).
			Str("model", req.Model.ID()).
			Logger(),
	}
	d.log.Debug().Str("mode", mode).Msg("dispatching request")

	return d, nil
}

func (d *dispatch) finish(ctx context.Context, resp models.Response, events int) {
	elapsed := time.Since(d.start)
	d.g.metrics.RecordRequest(d.provider, d.req.Model.ID(), d.mode, resp.Failed(), elapsed)

	ev := d.log.Debug()
	if resp.Failed() {
		ev = d.log.Warn().Str("error", resp.Error)
	}
	ev.Dur("latency", elapsed).Int("events", events).Msg("request finished")

	if resp.Usage == nil || resp.Usage.IsZero() {
		return
	}

	d.g.metrics.RecordTokens(d.provider, d.req.Model.ID(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	rc := usage.RecordContext{
		RequestID: d.id,
		Provider:  d.provider,
		Model:     d.req.Model.ID(),
		UsageType: d.g.usage.String(),
	}
	if err := d.g.recorder.Record(ctx, *resp.Usage, rc); err != nil {
		d.log.Warn().Err(err).Msg("record usage")
	}
}

func (g *Gateway) usageOf(u []models.UsageType) models.UsageType {
	if len(u) > 0 && u[0] != "" {
		return u[0]
	}
	return g.usage
}
