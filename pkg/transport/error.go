package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrStalled is the cause of a stream aborted by the idle watchdog.
var ErrStalled = errors.New("stream stalled")

// Error is a failed outbound exchange: either a non-2xx response or a
// connection/read failure.
type Error struct {
	StatusCode int
	Body       string
	Header     http.Header
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "transport error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Stalled reports whether the exchange was aborted by the idle watchdog.
func (e *Error) Stalled() bool { return errors.Is(e.Err, ErrStalled) }

// IsStatus reports whether err is a transport Error with the given status code.
func IsStatus(err error, code int) bool {
	var te *Error
	return errors.As(err, &te) && te.StatusCode == code
}
