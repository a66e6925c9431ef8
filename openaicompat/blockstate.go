package openaicompat

import (
	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/internal/partialjson"
	"github.com/llmrelay/llmrelay/model"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockToolCall
)

// currentBlock tracks the single open content block a streamDriver is
// accumulating at a time.
type currentBlock struct {
	kind         blockKind
	index        int
	text         string
	signatureTag chat.SignatureTag
	toolCallID   string
	toolCallName string
	toolCallArgs string
}

// streamDriver applies the block-transition algorithm to a sequence of
// decoded stream chunks, pushing events to a chatstream.Producer as it goes
// and accumulating the final chat.AssistantMessage.
type streamDriver struct {
	model   model.Model
	compat  ResolvedCompat
	pusher  *chatstream.Producer
	message chat.AssistantMessage
	current currentBlock
	think   *thinkTagParser
}

func newStreamDriver(m model.Model, compat ResolvedCompat, producer *chatstream.Producer) *streamDriver {
	d := &streamDriver{
		model:  m,
		compat: compat,
		pusher: producer,
		message: chat.AssistantMessage{
			Provider: m.Provider,
			ModelID:  m.ID,
			API:      m.API,
		},
	}
	if compat.ThinkingFormat == ThinkingFormatThinkTag {
		d.think = newThinkTagParser()
	}
	return d
}

// extractReasoning inspects a delta's reasoning fields in priority order
// and returns the first non-empty match.
func extractReasoning(delta streamDelta) (text string, tag chat.SignatureTag, ok bool) {
	if len(delta.ReasoningDetails) > 0 {
		var joined string
		for _, d := range delta.ReasoningDetails {
			joined += d.Text
		}
		if joined != "" {
			return joined, chat.SignatureTagReasoningDetails, true
		}
	}
	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		return *delta.ReasoningContent, chat.SignatureTagReasoningContent, true
	}
	if delta.Reasoning != nil && *delta.Reasoning != "" {
		return *delta.Reasoning, chat.SignatureTagReasoning, true
	}
	if delta.ReasoningText != nil && *delta.ReasoningText != "" {
		return *delta.ReasoningText, chat.SignatureTagReasoningText, true
	}
	return "", "", false
}

// applyDelta applies a single choice delta to the current block. Reasoning
// extraction and content handling are independent: a delta can carry both,
// and only an active think-tag diversion (not the presence of reasoning)
// routes content through the think-tag parser instead of plain text.
func (d *streamDriver) applyDelta(delta streamDelta) {
	if text, tag, ok := extractReasoning(delta); ok {
		d.applyThinkingFragment(text, tag)
	}

	if delta.Content != nil && *delta.Content != "" {
		if d.think != nil {
			for _, frag := range d.think.push(*delta.Content) {
				d.applyThinkFragment(frag)
			}
		} else {
			d.applyTextFragment(*delta.Content)
		}
	}

	for _, tc := range delta.ToolCalls {
		d.applyToolCallDelta(tc)
	}
}

func (d *streamDriver) applyThinkFragment(frag thinkFragment) {
	if frag.isThinking {
		d.applyThinkingFragment(frag.text, chat.SignatureTagThinkTag)
	} else {
		d.applyTextFragment(frag.text)
	}
}

func (d *streamDriver) applyTextFragment(text string) {
	if text == "" {
		return
	}
	if d.current.kind != blockText {
		d.closeCurrent()
		d.current = currentBlock{kind: blockText, index: len(d.message.Content)}
		d.message.Content = append(d.message.Content, chat.TextBlock{})
		d.pusher.Push(chat.NewBlockStartEvent(chat.EventTextStart, d.current.index, d.message))
	}
	d.current.text += text
	d.message.Content[d.current.index] = chat.TextBlock{Text: d.current.text}
	d.pusher.Push(chat.NewTextDeltaEvent(chat.EventTextDelta, d.current.index, text, d.message))
}

func (d *streamDriver) applyThinkingFragment(text string, tag chat.SignatureTag) {
	if text == "" {
		return
	}
	if d.current.kind != blockThinking || d.current.signatureTag != tag {
		d.closeCurrent()
		d.current = currentBlock{kind: blockThinking, index: len(d.message.Content), signatureTag: tag}
		d.message.Content = append(d.message.Content, chat.ThinkingBlock{SignatureTag: tag})
		d.pusher.Push(chat.NewBlockStartEvent(chat.EventThinkingStart, d.current.index, d.message))
	}
	d.current.text += text
	d.message.Content[d.current.index] = chat.ThinkingBlock{Text: d.current.text, SignatureTag: d.current.signatureTag}
	d.pusher.Push(chat.NewTextDeltaEvent(chat.EventThinkingDelta, d.current.index, text, d.message))
}

// applyToolCallDelta handles one tool-call delta: a delta with a new id
// starts a block; a delta with no id but an active tool-call block continues
// it; an orphan continuation delta (no id, no active block) is ignored.
func (d *streamDriver) applyToolCallDelta(tc streamToolCallDelta) {
	hasNewID := tc.ID != nil && *tc.ID != "" && *tc.ID != d.current.toolCallID
	if hasNewID {
		d.closeCurrent()
		d.current = currentBlock{kind: blockToolCall, index: len(d.message.Content), toolCallID: *tc.ID}
		d.message.Content = append(d.message.Content, chat.ToolCallBlock{ID: chat.ToolCallID(*tc.ID)})
		d.pusher.Push(chat.NewBlockStartEvent(chat.EventToolCallStart, d.current.index, d.message))
	}

	if d.current.kind != blockToolCall {
		return
	}

	if tc.Function.Name != nil && *tc.Function.Name != "" {
		d.current.toolCallName = *tc.Function.Name
	}
	var argsDelta string
	if tc.Function.Arguments != nil {
		argsDelta = *tc.Function.Arguments
		d.current.toolCallArgs += argsDelta
	}

	partialArgs, _ := partialjson.Parse(d.current.toolCallArgs)
	d.message.Content[d.current.index] = chat.ToolCallBlock{
		ID:        chat.ToolCallID(d.current.toolCallID),
		Name:      d.current.toolCallName,
		Arguments: partialArgs,
	}
	d.pusher.Push(chat.NewToolCallDeltaEvent(d.current.index, argsDelta, d.message))
}

// closeCurrent finalizes whatever block is open, emitting its End event with
// the fully-accumulated block value, then resets to blockNone.
func (d *streamDriver) closeCurrent() {
	switch d.current.kind {
	case blockText:
		d.message.Content[d.current.index] = chat.TextBlock{Text: d.current.text}
		d.pusher.Push(chat.NewBlockEndEvent(chat.EventTextEnd, d.current.index, d.message))
	case blockThinking:
		d.message.Content[d.current.index] = chat.ThinkingBlock{Text: d.current.text, SignatureTag: d.current.signatureTag}
		d.pusher.Push(chat.NewBlockEndEvent(chat.EventThinkingEnd, d.current.index, d.message))
	case blockToolCall:
		d.message.Content[d.current.index] = chat.ToolCallBlock{
			ID:        chat.ToolCallID(d.current.toolCallID),
			Name:      d.current.toolCallName,
			Arguments: partialjson.ParseFinal(d.current.toolCallArgs),
		}
		d.pusher.Push(chat.NewBlockEndEvent(chat.EventToolCallEnd, d.current.index, d.message))
	default:
		return
	}
	d.current = currentBlock{}
}

// applyUsage records token and cost accounting from a usage payload.
func (d *streamDriver) applyUsage(u *streamUsage) {
	cacheRead := 0
	if u.CacheReadInputTokens != nil {
		cacheRead = *u.CacheReadInputTokens
	} else if u.PromptTokensDetails != nil && u.PromptTokensDetails.CachedTokens != nil {
		cacheRead = *u.PromptTokensDetails.CachedTokens
	}

	cacheWrite := 0
	if u.CacheCreationInputTokens != nil {
		cacheWrite = *u.CacheCreationInputTokens
	} else if u.PromptTokensDetails != nil && u.PromptTokensDetails.CacheWriteTokens != nil {
		cacheWrite = *u.PromptTokensDetails.CacheWriteTokens
	}

	total := u.PromptTokens + u.CompletionTokens
	if u.TotalTokens != nil {
		total = *u.TotalTokens
	}

	cost := chat.Cost{
		InputCost:      d.model.Cost.InputCost(u.PromptTokens),
		OutputCost:     d.model.Cost.OutputCost(u.CompletionTokens),
		CacheReadCost:  d.model.Cost.CacheReadCost(cacheRead),
		CacheWriteCost: d.model.Cost.CacheWriteCost(cacheWrite),
	}
	cost.Total = cost.InputCost + cost.OutputCost + cost.CacheReadCost + cost.CacheWriteCost
	if u.CostDetails != nil && u.CostDetails.UpstreamInferenceCost != nil {
		cost.Total = *u.CostDetails.UpstreamInferenceCost
	} else if u.Cost != nil {
		cost.Total = *u.Cost
	}

	d.message.Usage = chat.Usage{
		InputTokens:      u.PromptTokens,
		OutputTokens:     u.CompletionTokens,
		CacheReadTokens:  cacheRead,
		CacheWriteTokens: cacheWrite,
		TotalTokens:      total,
		Cost:             cost,
	}
}

// finish closes any open block, flushes a pending think-tag buffer, and
// maps the finish reason onto StopReason.
func (d *streamDriver) finish(finishReason string) {
	if d.think != nil {
		for _, frag := range d.think.flush() {
			d.applyThinkFragment(frag)
		}
	}
	d.closeCurrent()
	d.message.StopReason = chat.FinishReasonToStopReason(finishReason)
}
