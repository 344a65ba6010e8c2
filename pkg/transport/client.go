package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"
)

// Options configures an HTTP client and its streams.
type Options struct {
	ConnectTimeout time.Duration // Dial timeout.
	IdleTimeout    time.Duration // Max silence on a stream body before it is aborted.
	RequestTimeout time.Duration // Total timeout of synchronous requests.
}

// DefaultOptions returns the default timeouts.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 120 * time.Second,
	}
}

// WithDefaults fills unset timeouts from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	return o
}

type startsAt struct{}

// NewHTTPClient creates the resty client used by one provider. Every call is
// logged at debug level; headers and bodies are never logged.
func NewHTTPClient(name string, opts Options, log zerolog.Logger) *resty.Client {
	opts = opts.WithDefaults()

	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout: opts.ConnectTimeout,
	}).
		SetTimeout(opts.RequestTimeout).
		SetRetryCount(0)

	client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startsAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		start, _ := r.Request.Context().Value(startsAt{}).(time.Time)

		ev := log.Debug().
			Str("client", name).
			Int("status", r.StatusCode()).
			Dur("latency", time.Since(start))
		if raw := r.Request.RawRequest; raw != nil {
			ev = ev.Str("method", raw.Method).Str("path", raw.URL.Path)
		}
		ev.Msg("HTTP client request")

		return nil
	})

	return client
}
