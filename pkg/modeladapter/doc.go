// Package modeladapter is the provider-independent half of every provider
// adapter.
//
// It contains:
//   - [Codec], the per-family conversion contract (payload out, response in)
//   - [ModelAdapter], which drives a Codec over HTTP: synchronous execution,
//     streaming execution with a per-request stream state, and status sweeps
//   - [Factories], the family name to constructor registry
//   - [github.com/germanamz/modelgate/pkg/modeladapter/usage], token usage records
//
// Transport and provider failures never escape as Go errors: they are folded
// into a terminal [models.Response] carrying the error message. Concrete
// families live under pkg/providers and import this package.
package modeladapter
