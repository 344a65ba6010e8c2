package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/modelgate/pkg/modeladapter/usage"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/transport"
)

// ErrIncompleteStream is reported when a stream ends without the provider's
// terminal marker.
var ErrIncompleteStream = errors.New("stream ended before completion")

// ExecuteStream runs req as a stream and delivers events to onData in arrival
// order on the caller's goroutine. Exactly one event has IsDone set, unless
// onData stops the stream first. Failures arrive as that terminal event.
func (a *ModelAdapter) ExecuteStream(ctx context.Context, req models.Request, onData models.OnData) {
	if req.Model == nil {
		onData(models.ErrorResponse(models.ErrNoModel))
		return
	}

	st := &streamState{adapter: a, req: req, onData: onData}

	call, err := a.family.Codec.Convert(ctx, req, true)
	if err != nil {
		st.fail(fmt.Errorf("convert request: %w", err))
		return
	}
	call = a.prepare(call, a.provider.StreamEndpoint())

	err = a.withRetry(ctx, req, func() error {
		serr := transport.Stream(ctx, a.http, call, a.family.Codec.Delimiter(), a.opts.IdleTimeout, st.event)
		if st.delivered > 0 {
			return serr
		}
		return a.classify(serr)
	})
	if err != nil {
		st.fail(err)
		return
	}

	if !st.done && !st.stopped {
		st.fail(ErrIncompleteStream)
	}
}

// streamState is the per-request state of one stream.
type streamState struct {
	adapter *ModelAdapter
	req     models.Request
	onData  models.OnData

	usage     *usage.TokenUsage
	text      strings.Builder
	delivered int
	done      bool
	stopped   bool
}

func (s *streamState) event(chunk []byte) bool {
	if s.done || s.stopped {
		return false
	}

	r, ok := s.adapter.family.Codec.ResponseFromChunk(chunk)
	if !ok {
		return true
	}

	s.usage = usage.Merge(s.usage, r.Usage)

	if r.Failed() {
		r.Usage = nil
		s.terminate(r)
		return false
	}

	s.text.WriteString(r.Text())

	if r.IsDone {
		r.Usage = s.adapter.completeUsage(s.req, s.usage, s.text.String())
		s.terminate(r)
		return false
	}

	// Usage-only and keep-alive events are merged, not forwarded.
	if r.Content.IsEmpty() {
		return true
	}

	r.Usage = nil
	s.delivered++
	if !s.onData(r) {
		s.stopped = true
		return false
	}

	return true
}

func (s *streamState) terminate(r models.Response) {
	r.IsDone = true
	s.done = true
	s.delivered++
	s.onData(r)
}

func (s *streamState) fail(err error) {
	if s.done || s.stopped {
		return
	}
	s.terminate(s.adapter.fail(s.req, err))
}
