// Package observability is the instrumentation seam shared by the provider
// engine and the dispatcher: a Provider bundles tracing, metrics, and
// structured logging behind one interface. A nil Provider means "don't
// instrument this call"; this package has no no-op implementation, so code
// holding a Provider or a Span checks it for nil before use.
package observability
