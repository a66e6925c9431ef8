// Package dispatch ties the canonical types, the event pipeline, the
// OpenAI-compatible provider engine, and the cross-provider transformer
// together into the single entry point callers use: construct a Dispatcher
// around a provider, then call Stream for the live event sequence or Send
// for a synchronous one-shot result. Stream never retries: a dropped or
// failed mid-stream call is a terminal Error event, not a retry candidate.
// Send wraps the underlying call with exponential-backoff retry, since a
// pre-stream failure (a dropped connection, a transient 5xx) has produced no
// partial content yet and is safe to reattempt.
package dispatch
