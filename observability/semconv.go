package observability

// Semantic conventions for observability attributes: standard names so
// dashboards built against one provider keep working against another.

// --- LLM provider attributes ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMAPI          = "llm.api"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMStopReason   = "llm.stop_reason"
	AttrLLMMaxTokens    = "llm.max_tokens"
)

// --- Token usage and cost attributes ---

const (
	AttrLLMTokensPrompt     = "llm.tokens.prompt"
	AttrLLMTokensCompletion = "llm.tokens.completion"
	AttrLLMTokensTotal      = "llm.tokens.total"
	AttrLLMTokensCacheRead  = "llm.tokens.cache_read"
	AttrLLMTokensCacheWrite = "llm.tokens.cache_write"
	AttrLLMCostTotal        = "llm.cost.total"
)

// --- Tool-call attributes (requesting a call, not executing one) ---

const (
	AttrToolName      = "tool.name"
	AttrToolCallID    = "tool.call_id"
	AttrToolCallCount = "tool.call_count"
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General attributes ---

const (
	AttrError     = "error"
	AttrErrorType = "error.type"
	AttrDuration  = "duration"
	AttrStatus    = "status"
)

// --- Span names ---

const (
	SpanDispatchSend  = "dispatch.send"
	SpanProviderStream = "provider.stream"
)

// --- Event names ---

const (
	EventStreamRequestStart = "stream.request.start"
	EventStreamRequestEnd   = "stream.request.end"
	EventStreamChunk        = "stream.chunk.received"
)
