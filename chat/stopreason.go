package chat

// StopReason classifies why an assistant turn ended. The first three values
// classify a successful Done event; the last two classify an Error event.
type StopReason string

const (
	StopReasonStop     StopReason = "stop"
	StopReasonLength   StopReason = "length"
	StopReasonToolUse  StopReason = "tool-use"
	StopReasonError    StopReason = "error"
	StopReasonAborted  StopReason = "aborted"
)

// IsTerminalError reports whether the reason classifies an Error event
// rather than a successful Done event.
func (r StopReason) IsTerminalError() bool {
	return r == StopReasonError || r == StopReasonAborted
}

// finishReasonToStopReason maps an OpenAI-compatible finish_reason string
// onto the canonical StopReason vocabulary. Unrecognized values map to stop,
// matching the wire's common "omit the field on success" behavior.
func finishReasonToStopReason(reason string) StopReason {
	switch reason {
	case "stop":
		return StopReasonStop
	case "length":
		return StopReasonLength
	case "tool_calls", "function_call":
		return StopReasonToolUse
	case "content_filter":
		return StopReasonError
	default:
		return StopReasonStop
	}
}

// FinishReasonToStopReason exports the finish-reason mapping table for
// callers outside openaicompat that need the same classification, e.g.
// tests exercising the table directly.
func FinishReasonToStopReason(reason string) StopReason {
	return finishReasonToStopReason(reason)
}
