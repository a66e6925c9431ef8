// Package httpstream provides the HTTP transport primitives the provider
// engine builds on: a streaming POST that leaves the response body open for
// SSE consumption, and a scanner that turns that body into a sequence of
// data payloads.
package httpstream
