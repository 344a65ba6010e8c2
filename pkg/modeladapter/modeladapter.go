package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/germanamz/modelgate/pkg/attachments"
	"github.com/germanamz/modelgate/pkg/logger"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/transport"
)

// Call is one outbound request built by a Codec. Path is relative to the
// provider endpoint.
type Call = transport.Call

// Codec converts between the gateway's normalized shapes and one API family's
// wire format.
type Codec interface {
	// Convert builds the provider request for req.
	Convert(ctx context.Context, req models.Request, stream bool) (Call, error)
	// ResponseFromData parses a complete response body.
	ResponseFromData(data []byte) models.Response
	// ResponseFromChunk parses one reassembled stream event. The bool is false
	// when the event carries nothing (keep-alives, metadata). IsDone is set
	// only by the provider's terminal marker.
	ResponseFromChunk(chunk []byte) (models.Response, bool)
	// Delimiter returns the stream event boundary.
	Delimiter() []byte
	// StatusPath returns the model listing path, or "" when the family has none.
	StatusPath() string
	// ParseStatus returns the model ids listed in a status response.
	ParseStatus(data []byte) ([]string, error)
}

// Auth holds authentication settings for a provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

func (a Auth) apply(h map[string]string) {
	if a.Key == "" {
		return
	}

	header := a.Header
	if header == "" {
		header = "Authorization"
	}

	value := a.Key
	if header == "Authorization" {
		scheme := a.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}
		value = scheme + " " + value
	} else if a.Scheme != "" {
		value = a.Scheme + " " + value
	}

	h[header] = value
}

// Deps are the shared collaborators handed to every adapter factory.
type Deps struct {
	HTTP        *resty.Client     // Optional; built from Transport when nil.
	Transport   transport.Options // Timeouts.
	Attachments attachments.Store // Optional; attachments are skipped when nil.
	Logger      *zerolog.Logger   // Optional; defaults to the process logger.
}

// Log returns the configured logger or the process logger.
func (d Deps) Log() zerolog.Logger {
	if d.Logger != nil {
		return *d.Logger
	}
	return logger.GetLogger()
}

// Inliner returns an attachment inliner over the configured store.
func (d Deps) Inliner() *attachments.Inliner {
	return attachments.NewInliner(d.Attachments, d.Log())
}

// Family is what an API family contributes to a ModelAdapter.
type Family struct {
	Codec            Codec
	Auth             Auth
	Headers          map[string]string // Extra headers applied to every request.
	RateLimitHeaders *HeaderSet        // Optional rate limit header names.
}

// ModelAdapter drives a Codec against one provider.
type ModelAdapter struct {
	provider  models.Provider
	family    Family
	http      *resty.Client
	opts      transport.Options
	retry     RetryPolicy
	estimator TokenEstimator
	log       zerolog.Logger

	rateLimit atomic.Pointer[RateLimitInfo]

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
	now    func() time.Time
}

// New creates a ModelAdapter for provider p.
func New(p models.Provider, family Family, deps Deps) *ModelAdapter {
	log := deps.Log().With().Str("provider", p.ID).Logger()
	opts := deps.Transport.WithDefaults()

	client := deps.HTTP
	if client == nil {
		client = transport.NewHTTPClient(p.ID, opts, log)
	}

	return &ModelAdapter{
		provider: p,
		family:   family,
		http:     client,
		opts:     opts,
		retry:    RetryPolicy{MaxRetries: p.MaxRetries, BaseDelay: time.Second},
		log:      log,
		sleep:    contextSleep,
		jitter:   rand.Float64,
		now:      time.Now,
	}
}

// Provider returns the provider the adapter talks to.
func (a *ModelAdapter) Provider() models.Provider { return a.provider }

// Codec returns the family codec.
func (a *ModelAdapter) Codec() Codec { return a.family.Codec }

// LastRateLimitInfo returns the most recently observed rate limit info, or nil.
func (a *ModelAdapter) LastRateLimitInfo() *RateLimitInfo { return a.rateLimit.Load() }

// Models returns a fresh, unbound Model for every active model of the provider.
func (a *ModelAdapter) Models() []*models.Model {
	out := make([]*models.Model, 0, len(a.provider.Models))
	for _, r := range a.provider.Models {
		if !r.IsActive() {
			continue
		}
		out = append(out, models.NewModel(r))
	}
	return out
}

// Execute runs req synchronously. The returned Response always has IsDone set;
// failures are reported through its Error field.
func (a *ModelAdapter) Execute(ctx context.Context, req models.Request) models.Response {
	if req.Model == nil {
		return models.ErrorResponse(models.ErrNoModel)
	}

	call, err := a.family.Codec.Convert(ctx, req, false)
	if err != nil {
		return a.fail(req, fmt.Errorf("convert request: %w", err))
	}
	call = a.prepare(call, a.provider.APIEndpoint())

	var reply transport.Reply
	err = a.withRetry(ctx, req, func() error {
		var derr error
		reply, derr = transport.Do(ctx, a.http, call)
		return a.classify(derr)
	})
	if err != nil {
		return a.fail(req, err)
	}

	a.observe(reply.Header)

	resp := a.family.Codec.ResponseFromData(reply.Body)
	resp.IsDone = true
	if resp.Failed() {
		return resp
	}
	resp.Usage = a.completeUsage(req, resp.Usage, resp.Text())

	return resp
}

// Sweep lists the provider's models and reports every configured and listed
// model id as ONLINE or OFFLINE. When the provider cannot be reached all
// configured models are OFFLINE; when the family has no listing endpoint or
// the listing cannot be parsed they are UNKNOWN.
func (a *ModelAdapter) Sweep(ctx context.Context) map[string]models.Status {
	out := make(map[string]models.Status)
	configured := a.Models()

	setAll := func(s models.Status) map[string]models.Status {
		for _, m := range configured {
			out[m.ID()] = s
		}
		return out
	}

	path := a.family.Codec.StatusPath()
	if path == "" {
		return setAll(models.StatusUnknown)
	}

	call := a.prepare(Call{Method: http.MethodGet, Path: path}, a.provider.PingEndpoint())
	reply, err := transport.Do(ctx, a.http, call)
	if err != nil {
		a.log.Warn().Err(err).Msg("status sweep failed")
		return setAll(models.StatusOffline)
	}
	a.observe(reply.Header)

	listed, err := a.family.Codec.ParseStatus(reply.Body)
	if err != nil {
		a.log.Warn().Err(err).Msg("parse status listing")
		return setAll(models.StatusUnknown)
	}

	for _, id := range listed {
		out[id] = models.StatusOnline
	}

	for _, m := range configured {
		status := models.StatusOffline
		for _, id := range listed {
			if m.IDMatches(id) {
				status = models.StatusOnline
				break
			}
		}
		out[m.ID()] = status
	}

	a.log.Debug().Int("listed", len(listed)).Int("configured", len(configured)).Msg("status sweep")

	return out
}

func (a *ModelAdapter) prepare(call Call, endpoint string) Call {
	headers := make(map[string]string, len(call.Headers)+len(a.family.Headers)+1)
	for k, v := range a.family.Headers {
		headers[k] = v
	}
	for k, v := range call.Headers {
		headers[k] = v
	}
	a.family.Auth.apply(headers)

	call.Headers = headers
	call.Path = endpoint + call.Path

	return call
}

// classify turns an HTTP 429 into a *RateLimitError.
func (a *ModelAdapter) classify(err error) error {
	var te *transport.Error
	if err == nil || !errors.As(err, &te) || te.StatusCode != http.StatusTooManyRequests {
		return err
	}

	var retryAfter time.Duration
	if te.Header != nil {
		retryAfter = ParseRetryAfter(te.Header.Get("Retry-After"))
	}

	return &RateLimitError{RetryAfter: retryAfter, Body: te.Body}
}

func (a *ModelAdapter) observe(h http.Header) {
	if a.family.RateLimitHeaders == nil || h == nil {
		return
	}
	if info := a.family.RateLimitHeaders.Parse(h, a.now()); info != nil {
		a.rateLimit.Store(info)
	}
}

func (a *ModelAdapter) fail(req models.Request, err error) models.Response {
	ev := a.log.Warn().Err(err)
	if req.Model != nil {
		ev = ev.Str("model", req.Model.ID())
	}
	var te *transport.Error
	if errors.As(err, &te) && te.Stalled() {
		ev = ev.Bool("stalled", true)
	}
	ev.Msg("provider request failed")

	return models.ErrorResponse(err)
}

// completeUsage stamps the model id and falls back to an estimate when the
// provider reported nothing.
func (a *ModelAdapter) completeUsage(req models.Request, u *usage.TokenUsage, completion string) *usage.TokenUsage {
	var out usage.TokenUsage
	if u == nil || u.IsZero() {
		out = a.estimator.Usage(req.Payload, completion)
	} else {
		out = *u
	}
	out.Model = req.Model.ID()

	return &out
}
