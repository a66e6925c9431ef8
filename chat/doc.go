// Package chat defines the canonical, provider-agnostic conversation types
// shared by every backend this module talks to: messages, content blocks,
// tool calls, token usage, stop reasons, and the streaming assistant-message
// event schema. Provider packages are responsible for mapping these types to
// and from their own wire formats; nothing in this package knows about HTTP,
// SSE, or any specific vendor.
package chat
