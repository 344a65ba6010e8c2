package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/germanamz/modelgate/pkg/models"
)

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RetryPolicy controls retries after HTTP 429.
type RetryPolicy struct {
	MaxRetries int           // 0 disables retrying.
	BaseDelay  time.Duration // Delay before the first retry.
}

// Backoff returns the delay before retry number attempt (0-based): BaseDelay
// doubled per attempt, or the server's Retry-After when larger, with ±25%
// jitter. jitter returns a value in [0,1).
func (p RetryPolicy) Backoff(attempt int, retryAfter time.Duration, jitter float64) time.Duration {
	d := max(p.BaseDelay*time.Duration(math.Pow(2, float64(attempt))), retryAfter) //nolint:mnd // exponential backoff
	factor := 0.75 + jitter*0.5                                                    //nolint:mnd // ±25% jitter
	return time.Duration(float64(d) * factor)
}

// withRetry runs fn and repeats it while it fails with a *RateLimitError and
// the retry budget allows. The last error is returned.
func (a *ModelAdapter) withRetry(ctx context.Context, req models.Request, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()

		var rle *RateLimitError
		if err == nil || !errors.As(err, &rle) || attempt >= a.retry.MaxRetries {
			return err
		}

		d := a.retry.Backoff(attempt, rle.RetryAfter, a.jitter())
		ev := a.log.Info().Dur("backoff", d).Int("attempt", attempt+1)
		if req.Model != nil {
			ev = ev.Str("model", req.Model.ID())
		}
		ev.Msg("rate limited, retrying")

		if serr := a.sleep(ctx, d); serr != nil {
			return err
		}
	}
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
