// Package openaicompat implements the OpenAI-compatible provider engine: it
// resolves per-provider wire quirks into a ResolvedCompat profile, builds
// chat-completion request bodies, and drives the streaming response through
// a block state machine that feeds a chatstream.Pipeline.
//
// The package never talks to a real provider by name; every behavioral
// branch is keyed off ResolvedCompat fields computed once per call from the
// model descriptor's base URL and explicit overrides.
package openaicompat
