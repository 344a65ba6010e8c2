package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"resty.dev/v3"
)

const (
	readBufferSize = 32 * 1024
	errorBodyLimit = 64 * 1024
)

// Call is one outbound request: a path relative to the client's base URL,
// query parameters, extra headers and a JSON-encodable body.
type Call struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

func (c Call) method() string {
	if c.Method == "" {
		return http.MethodPost
	}
	return c.Method
}

func (c Call) request(ctx context.Context, client *resty.Client) *resty.Request {
	r := client.R().SetContext(ctx)
	if len(c.Query) > 0 {
		r.SetQueryParams(c.Query)
	}
	if len(c.Headers) > 0 {
		r.SetHeaders(c.Headers)
	}
	if c.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(c.Body)
	}
	return r
}

// Reply is the successful result of Do.
type Reply struct {
	Body   []byte
	Header http.Header
}

// Do executes a synchronous call. Non-2xx responses are returned as *Error.
func Do(ctx context.Context, client *resty.Client, call Call) (Reply, error) {
	resp, err := call.request(ctx, client).Execute(call.method(), call.Path)
	if err != nil {
		return Reply{}, &Error{Err: fmt.Errorf("%s %s: %w", call.method(), call.Path, err)}
	}

	if resp.IsError() {
		return Reply{}, &Error{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			Header:     resp.Header(),
		}
	}

	return Reply{Body: resp.Bytes(), Header: resp.Header()}, nil
}

// Stream executes call without a total timeout and delivers each complete
// event to onEvent on the caller's goroutine before the next read. The stream
// is aborted with a stalled *Error when no bytes arrive for idle. onEvent
// returning false stops the stream with a nil error. A residue left when the
// body ends is delivered as a last event.
func Stream(ctx context.Context, client *resty.Client, call Call, delim []byte, idle time.Duration, onEvent func([]byte) bool) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var watchdog *time.Timer
	if idle > 0 {
		watchdog = time.AfterFunc(idle, func() { cancel(ErrStalled) })
		defer watchdog.Stop()
	}

	resp, err := call.request(ctx, client).
		SetTimeout(0).
		SetDoNotParseResponse(true).
		Execute(call.method(), call.Path)
	if err != nil {
		return streamError(ctx, fmt.Errorf("%s %s: %w", call.method(), call.Path, err))
	}

	body := resp.Body
	if body == nil {
		body = resp.RawResponse.Body
	}
	defer func() { _ = body.Close() }()

	if resp.IsError() {
		b, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))
		return &Error{
			StatusCode: resp.StatusCode(),
			Body:       string(b),
			Header:     resp.Header(),
		}
	}

	r := NewReassembler(delim)
	buf := make([]byte, readBufferSize)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if watchdog != nil {
				watchdog.Reset(idle)
			}
			for _, ev := range r.Write(buf[:n]) {
				if !onEvent(ev) {
					return nil
				}
			}
		}

		if errors.Is(rerr, io.EOF) {
			if ev := r.Flush(); ev != nil {
				onEvent(ev)
			}
			return nil
		}
		if rerr != nil {
			return streamError(ctx, fmt.Errorf("read stream: %w", rerr))
		}
	}
}

func streamError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrStalled) {
		return &Error{Err: fmt.Errorf("%w: %w", ErrStalled, err)}
	}
	return &Error{Err: err}
}
