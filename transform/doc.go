// Package transform rewrites a conversation for a different target model: it
// strips same-model-only payloads (thinking signatures, tool thought
// signatures) that the target can't replay, drops assistant turns that ended
// in an unrecoverable error, and repairs any tool call left without a
// matching tool result so the rewritten sequence is always valid to resend.
package transform
