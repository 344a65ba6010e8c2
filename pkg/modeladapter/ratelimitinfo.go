package modeladapter

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo holds rate limit state parsed from provider response headers.
type RateLimitInfo struct {
	RemainingRequests int
	RemainingTokens   int
	RequestsReset     time.Time
	TokensReset       time.Time
}

// Exhausted reports whether the provider announced no remaining requests or
// tokens before a reset that is still in the future.
func (i *RateLimitInfo) Exhausted(now time.Time) bool {
	if i == nil {
		return false
	}
	return (i.RemainingRequests <= 0 && i.RequestsReset.After(now)) ||
		(i.RemainingTokens <= 0 && i.TokensReset.After(now))
}

// HeaderSet names the rate limit headers of one API family.
type HeaderSet struct {
	RemainingRequests string
	RemainingTokens   string
	RequestsReset     string
	TokensReset       string
}

// OpenAIHeaders are the x-ratelimit-* headers used by OpenAI-compatible APIs.
var OpenAIHeaders = HeaderSet{
	RemainingRequests: "x-ratelimit-remaining-requests",
	RemainingTokens:   "x-ratelimit-remaining-tokens",
	RequestsReset:     "x-ratelimit-reset-requests",
	TokensReset:       "x-ratelimit-reset-tokens",
}

// AnthropicHeaders are the anthropic-ratelimit-* headers.
var AnthropicHeaders = HeaderSet{
	RemainingRequests: "anthropic-ratelimit-requests-remaining",
	RemainingTokens:   "anthropic-ratelimit-tokens-remaining",
	RequestsReset:     "anthropic-ratelimit-requests-reset",
	TokensReset:       "anthropic-ratelimit-tokens-reset",
}

// Parse extracts rate limit info from h, or returns nil when neither remaining
// counter is present. Reset values may be RFC3339 timestamps or durations
// relative to now ("6s", "1m30s").
func (s HeaderSet) Parse(h http.Header, now time.Time) *RateLimitInfo {
	reqRemaining := h.Get(s.RemainingRequests)
	tokRemaining := h.Get(s.RemainingTokens)
	if reqRemaining == "" && tokRemaining == "" {
		return nil
	}

	info := &RateLimitInfo{}
	if v, err := strconv.Atoi(reqRemaining); err == nil {
		info.RemainingRequests = v
	}
	if v, err := strconv.Atoi(tokRemaining); err == nil {
		info.RemainingTokens = v
	}
	info.RequestsReset = parseResetTime(h.Get(s.RequestsReset), now)
	info.TokensReset = parseResetTime(h.Get(s.TokensReset), now)

	return info
}

func parseResetTime(val string, now time.Time) time.Time {
	if val == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.ParseDuration(val); err == nil {
		return now.Add(d)
	}
	return time.Time{}
}
