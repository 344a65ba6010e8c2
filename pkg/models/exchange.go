package models

import (
	"context"

	"github.com/germanamz/modelgate/pkg/chats/content"
	"github.com/germanamz/modelgate/pkg/chats/payload"
	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
)

// Request pairs a payload with the model it targets. Model may be nil, in
// which case the gateway resolves it from Payload.Model.
type Request struct {
	Model   *Model
	Payload payload.Payload
}

// NewRequest creates a request for an explicit model.
func NewRequest(m *Model, p payload.Payload) Request {
	return Request{Model: m, Payload: p}
}

// Response is the normalized result of an exchange, or of one stream event.
// IsDone is false only for intermediate stream events.
type Response struct {
	Content content.Content   `json:"content"`
	Usage   *usage.TokenUsage `json:"usage"`
	IsDone  bool              `json:"isDone"`
	Error   string            `json:"error,omitempty"`
}

// ErrorResponse folds a transport or provider failure into a terminal Response.
func ErrorResponse(err error) Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Response{
		Content: content.Failure(msg),
		IsDone:  true,
		Error:   msg,
	}
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool { return r.Error != "" }

// Text returns the response's text content.
func (r Response) Text() string { return r.Content.Text() }

// OnData receives stream events in arrival order. Returning false stops the
// stream; no further events are delivered.
type OnData func(Response) bool

// Client executes requests for the models it owns.
type Client interface {
	// SendRequest executes the request synchronously. Transport failures are
	// folded into the Response; the error is reserved for programming errors.
	SendRequest(ctx context.Context, req Request) (Response, error)

	// SendStreamRequest executes the request and delivers events to onData.
	SendStreamRequest(ctx context.Context, req Request, onData OnData) error

	// Status returns the cached availability of a model owned by the client.
	Status(ctx context.Context, m *Model) Status

	// Underlying returns the client that actually owns the models. Wrappers
	// return the wrapped client; concrete clients return themselves.
	Underlying() Client
}
