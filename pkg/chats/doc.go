// Package chats provides the provider-agnostic exchange shapes the gateway
// accepts and returns.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/modelgate/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/modelgate/pkg/chats/message]: inbound messages with text and attachment ids
//   - [github.com/germanamz/modelgate/pkg/chats/payload]: the raw request payload ({model, stream, messages, tools})
//   - [github.com/germanamz/modelgate/pkg/chats/content]: the normalized response content map
//   - [github.com/germanamz/modelgate/pkg/chats/chat]: a multi-turn conversation that renders payloads
//
// No provider or API code is included; chats is a foundation layer
// that adapters can build on.
package chats
