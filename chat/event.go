package chat

// EventKind enumerates the twelve kinds of AssistantMessageEvent: a leading
// Start, three per-block-kind {Start,Delta,End} triples, and a terminal
// Done or Error.
type EventKind string

const (
	EventStart EventKind = "start"

	EventTextStart EventKind = "textStart"
	EventTextDelta EventKind = "textDelta"
	EventTextEnd   EventKind = "textEnd"

	EventThinkingStart EventKind = "thinkingStart"
	EventThinkingDelta EventKind = "thinkingDelta"
	EventThinkingEnd   EventKind = "thinkingEnd"

	EventToolCallStart EventKind = "toolCallStart"
	EventToolCallDelta EventKind = "toolCallDelta"
	EventToolCallEnd   EventKind = "toolCallEnd"

	EventDone  EventKind = "done"
	EventError EventKind = "error"
)

// Event is a single item in the canonical assistant-message event stream.
// Every non-terminal event carries Partial, a snapshot of the assistant
// message accumulated so far; Done and Error are the only terminal kinds and
// carry Message instead.
type Event struct {
	Kind EventKind

	// ContentIndex identifies which content block a Start/Delta/End event
	// refers to.
	ContentIndex int

	// TextDelta carries the incremental fragment for TextDelta and
	// ThinkingDelta events (the field is reused for both; the Kind
	// disambiguates which block it belongs to).
	TextDelta string

	// ToolCallDelta carries the incremental raw-argument fragment for
	// ToolCallDelta events.
	ToolCallDelta string

	// Partial is a cloned snapshot of the assistant message as accumulated
	// through this event. Present on every non-terminal event.
	Partial *AssistantMessage

	// StopReason classifies a Done or Error terminal event.
	StopReason StopReason

	// Message is the final assistant message, present only on Done and
	// Error.
	Message *AssistantMessage

	// Err carries the underlying error for an Error event.
	Err error
}

// NewStartEvent builds the initial Start event for a fresh assistant turn.
func NewStartEvent(partial AssistantMessage) Event {
	clone := partial.Clone()
	return Event{Kind: EventStart, Partial: &clone}
}

// NewBlockStartEvent builds a {Text,Thinking,ToolCall}Start event.
func NewBlockStartEvent(kind EventKind, index int, partial AssistantMessage) Event {
	clone := partial.Clone()
	return Event{Kind: kind, ContentIndex: index, Partial: &clone}
}

// NewTextDeltaEvent builds a TextDelta or ThinkingDelta event carrying the
// incremental text fragment.
func NewTextDeltaEvent(kind EventKind, index int, delta string, partial AssistantMessage) Event {
	clone := partial.Clone()
	return Event{Kind: kind, ContentIndex: index, TextDelta: delta, Partial: &clone}
}

// NewToolCallDeltaEvent builds a ToolCallDelta event carrying the
// incremental raw-argument fragment.
func NewToolCallDeltaEvent(index int, delta string, partial AssistantMessage) Event {
	clone := partial.Clone()
	return Event{Kind: EventToolCallDelta, ContentIndex: index, ToolCallDelta: delta, Partial: &clone}
}

// NewBlockEndEvent builds a {Text,Thinking,ToolCall}End event.
func NewBlockEndEvent(kind EventKind, index int, partial AssistantMessage) Event {
	clone := partial.Clone()
	return Event{Kind: kind, ContentIndex: index, Partial: &clone}
}

// NewDoneEvent builds the terminal Done event for a successful completion.
func NewDoneEvent(reason StopReason, message AssistantMessage) Event {
	clone := message.Clone()
	return Event{Kind: EventDone, StopReason: reason, Message: &clone}
}

// NewErrorEvent builds the terminal Error event for a failed completion. The
// message carries whatever content was accumulated before the failure.
func NewErrorEvent(reason StopReason, err error, message AssistantMessage) Event {
	clone := message.Clone()
	return Event{Kind: EventError, StopReason: reason, Err: err, Message: &clone}
}

// IsTerminal reports whether this event is the stream's final event.
func (e Event) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
