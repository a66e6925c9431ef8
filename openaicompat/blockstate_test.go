package openaicompat

import (
	"testing"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/model"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// runChunks drives a streamDriver through a sequence of pre-decoded chunks
// and returns the pipeline's event log plus final result, exercising the
// block-transition algorithm without any HTTP machinery.
func runChunks(t *testing.T, m model.Model, compat ResolvedCompat, chunks []*streamChunk) ([]chat.Event, chat.AssistantMessage, error) {
	t.Helper()
	producer, consumer := chatstream.NewPipeline()
	d := newStreamDriver(m, compat, producer)
	producer.Push(chat.NewStartEvent(d.message))

	for _, chunk := range chunks {
		if chunk.Usage != nil {
			d.applyUsage(chunk.Usage)
		}
		for _, choice := range chunk.Choices {
			d.applyDelta(choice.Delta)
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				d.finish(*choice.FinishReason)
				producer.Finish(d.message, nil)
			}
		}
	}

	return consumer.Drain()
}

func TestBlockState_PlainTextCompletion(t *testing.T) {
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr("Hello")}}}},
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr(", world")}}}},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	events, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.StopReason != chat.StopReasonStop {
		t.Errorf("StopReason = %v, want stop", msg.StopReason)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(msg.Content))
	}
	text, ok := msg.Content[0].(chat.TextBlock)
	if !ok || text.Text != "Hello, world" {
		t.Errorf("content = %+v, want TextBlock{Hello, world}", msg.Content[0])
	}

	assertStartDeltaEndOrder(t, events)
}

func TestBlockState_InlineThinkTagReasoning(t *testing.T) {
	compat := ResolvedCompat{ThinkingFormat: ThinkingFormatThinkTag}
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr("<think>pondering")}}}},
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr(" further</think>answer: 4")}}}},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	_, msg, err := runChunks(t, model.Model{}, compat, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("expected thinking+text blocks, got %d: %+v", len(msg.Content), msg.Content)
	}
	thinking, ok := msg.Content[0].(chat.ThinkingBlock)
	if !ok || thinking.Text != "pondering further" {
		t.Errorf("thinking block = %+v", msg.Content[0])
	}
	if thinking.SignatureTag != chat.SignatureTagThinkTag {
		t.Errorf("SignatureTag = %v, want think_tag", thinking.SignatureTag)
	}
	text, ok := msg.Content[1].(chat.TextBlock)
	if !ok || text.Text != "answer: 4" {
		t.Errorf("text block = %+v", msg.Content[1])
	}
}

func TestBlockState_ReasoningFieldPriorityOrder(t *testing.T) {
	// reasoning_details should win even when reasoning_content is also present.
	chunk := &streamChunk{Choices: []streamChoice{{Delta: streamDelta{
		ReasoningDetails: []streamReasoningDetail{{Text: "from details"}},
		ReasoningContent: strPtr("from content"),
	}}}}

	_, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, []*streamChunk{chunk, {Choices: []streamChoice{{FinishReason: strPtr("stop")}}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	thinking := msg.Content[0].(chat.ThinkingBlock)
	if thinking.Text != "from details" {
		t.Errorf("Text = %q, want %q", thinking.Text, "from details")
	}
	if thinking.SignatureTag != chat.SignatureTagReasoningDetails {
		t.Errorf("SignatureTag = %v, want reasoning_details", thinking.SignatureTag)
	}
}

func TestBlockState_ReasoningAndContentInSameDeltaBothApplied(t *testing.T) {
	// A single delta carrying both a reasoning field and content: without a
	// think-tag diversion active, both must surface, not just the reasoning.
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{
			ReasoningContent: strPtr("thinking it through"),
			Content:          strPtr("the answer"),
		}}}},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	_, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("expected both a thinking and a text block, got %d: %+v", len(msg.Content), msg.Content)
	}
	thinking, ok := msg.Content[0].(chat.ThinkingBlock)
	if !ok || thinking.Text != "thinking it through" {
		t.Errorf("thinking block = %+v", msg.Content[0])
	}
	text, ok := msg.Content[1].(chat.TextBlock)
	if !ok || text.Text != "the answer" {
		t.Errorf("text block = %+v, want %q", msg.Content[1], "the answer")
	}
}

func TestBlockState_StreamingToolCall(t *testing.T) {
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{ToolCalls: []streamToolCallDelta{
			{Index: intPtr(0), ID: strPtr("call_1"), Function: streamFunctionDelta{Name: strPtr("get_weather")}},
		}}}}},
		{Choices: []streamChoice{{Delta: streamDelta{ToolCalls: []streamToolCallDelta{
			{Index: intPtr(0), Function: streamFunctionDelta{Arguments: strPtr(`{"city":"`)}},
		}}}}},
		{Choices: []streamChoice{{Delta: streamDelta{ToolCalls: []streamToolCallDelta{
			{Index: intPtr(0), Function: streamFunctionDelta{Arguments: strPtr(`nyc"}`)}},
		}}}}},
		{Choices: []streamChoice{{FinishReason: strPtr("tool_calls")}}},
	}

	_, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.StopReason != chat.StopReasonToolUse {
		t.Errorf("StopReason = %v, want tool-use", msg.StopReason)
	}
	tc, ok := msg.Content[0].(chat.ToolCallBlock)
	if !ok {
		t.Fatalf("expected a ToolCallBlock, got %T", msg.Content[0])
	}
	if tc.ID != "call_1" || tc.Name != "get_weather" {
		t.Errorf("tool call = %+v", tc)
	}
	args, ok := tc.Arguments.(map[string]any)
	if !ok || args["city"] != "nyc" {
		t.Errorf("arguments = %v, want city=nyc", tc.Arguments)
	}
}

func TestBlockState_OrphanContinuationDeltaIgnored(t *testing.T) {
	chunks := []*streamChunk{
		// No id and no active tool-call block: must be dropped silently.
		{Choices: []streamChoice{{Delta: streamDelta{ToolCalls: []streamToolCallDelta{
			{Index: intPtr(0), Function: streamFunctionDelta{Arguments: strPtr("orphan")}},
		}}}}},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	_, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Content) != 0 {
		t.Errorf("expected orphan delta to produce no content blocks, got %+v", msg.Content)
	}
}

func TestBlockState_UsageAccumulationWithOpenRouterCostFields(t *testing.T) {
	cachedTokens := 10
	upstreamCost := 0.0042
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr("hi")}}}},
		{
			Usage: &streamUsage{
				PromptTokens:     100,
				CompletionTokens: 20,
				PromptTokensDetails: &streamPromptDetails{
					CachedTokens: &cachedTokens,
				},
				CostDetails: &streamCostDetails{UpstreamInferenceCost: &upstreamCost},
			},
		},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	_, msg, err := runChunks(t, model.Model{}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Usage.InputTokens != 100 || msg.Usage.OutputTokens != 20 {
		t.Errorf("usage = %+v", msg.Usage)
	}
	if msg.Usage.CacheReadTokens != 10 {
		t.Errorf("CacheReadTokens = %d, want 10 (from prompt_tokens_details.cached_tokens)", msg.Usage.CacheReadTokens)
	}
	if msg.Usage.Cost.Total != upstreamCost {
		t.Errorf("Cost.Total = %v, want upstream inference cost %v", msg.Usage.Cost.Total, upstreamCost)
	}
}

func TestBlockState_SilentContextOverflowDetectedViaUsage(t *testing.T) {
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr("ok")}}}},
		{Usage: &streamUsage{PromptTokens: 9000, CompletionTokens: 10}},
		{Choices: []streamChoice{{FinishReason: strPtr("stop")}}},
	}

	_, msg, err := runChunks(t, model.Model{ContextWindow: 8000}, ResolvedCompat{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.StopReason != chat.StopReasonStop {
		t.Fatalf("expected a successful stop reason on the surface, got %v", msg.StopReason)
	}
	if !msg.Usage.ExceedsContextWindow(8000) {
		t.Error("expected ExceedsContextWindow to detect the silent overflow")
	}
}

func TestBlockState_ContentFilterMapsToErrorEvent(t *testing.T) {
	chunks := []*streamChunk{
		{Choices: []streamChoice{{Delta: streamDelta{Content: strPtr("partial")}}}},
	}

	producer, consumer := chatstream.NewPipeline()
	d := newStreamDriver(model.Model{}, ResolvedCompat{}, producer)
	producer.Push(chat.NewStartEvent(d.message))
	for _, chunk := range chunks {
		for _, choice := range chunk.Choices {
			d.applyDelta(choice.Delta)
		}
	}
	d.finish("content_filter")
	producer.Finish(d.message, errContentFiltered(d.message))

	_, msg, err := consumer.Drain()
	if err == nil {
		t.Fatal("expected an error for a content-filtered completion")
	}
	if msg.StopReason != chat.StopReasonError {
		t.Errorf("StopReason = %v, want error", msg.StopReason)
	}
	if text, ok := msg.Content[0].(chat.TextBlock); !ok || text.Text != "partial" {
		t.Errorf("expected partial content to survive the error, got %+v", msg.Content)
	}
}

// errContentFiltered mirrors the error provider.go's drive loop builds for a
// content_filter finish reason, without requiring an HTTP round trip here.
func errContentFiltered(msg chat.AssistantMessage) error {
	return ErrInvalidResponse
}

func assertStartDeltaEndOrder(t *testing.T, events []chat.Event) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	if events[0].Kind != chat.EventStart {
		t.Errorf("first event = %v, want EventStart", events[0].Kind)
	}
	open := map[int]bool{}
	for i, e := range events[1:] {
		switch e.Kind {
		case chat.EventTextStart, chat.EventThinkingStart, chat.EventToolCallStart:
			if open[e.ContentIndex] {
				t.Errorf("event %d: %v for block %d, which is already open", i+1, e.Kind, e.ContentIndex)
			}
			open[e.ContentIndex] = true
		case chat.EventTextDelta, chat.EventThinkingDelta, chat.EventToolCallDelta:
			if !open[e.ContentIndex] {
				t.Errorf("event %d: %v for block %d, which is not open", i+1, e.Kind, e.ContentIndex)
			}
		case chat.EventTextEnd, chat.EventThinkingEnd, chat.EventToolCallEnd:
			if !open[e.ContentIndex] {
				t.Errorf("event %d: %v for block %d, which is not open", i+1, e.Kind, e.ContentIndex)
			}
			open[e.ContentIndex] = false
		}
	}
}
