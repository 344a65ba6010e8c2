// Package models holds the immutable value types of the gateway: model and
// provider descriptions, the binding [Context] that attaches a model to its
// provider and lazy client/status resolvers, the normalized [Request] and
// [Response] shapes, and the insertion-ordered [Collection] and [Map]
// containers returned by the registry.
//
// A [Model] starts unbound. The registry binds it exactly once; accessors that
// need the provider, the client or the status fail with [ErrUnbound] before
// that.
package models
