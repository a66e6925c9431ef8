package transform

import "github.com/llmrelay/llmrelay/chat"

// Normalizer rewrites a tool-call id for replay against target, given the
// assistant message that produced it. It returns the id unchanged when no
// rewrite is needed. A nil Normalizer leaves every tool-call id untouched.
type Normalizer func(id chat.ToolCallID, target chat.TargetModel, assistant chat.AssistantMessage) chat.ToolCallID

// Transform rewrites messages for target, returning a new sequence. It never
// mutates the input conversation or any message/block within it.
func Transform(messages chat.Conversation, target chat.TargetModel, normalize Normalizer) chat.Conversation {
	idMap := make(map[chat.ToolCallID]chat.ToolCallID)

	rewritten := make(chat.Conversation, 0, len(messages))
	for _, msg := range messages {
		switch m := msg.(type) {
		case chat.UserMessage:
			rewritten = append(rewritten, m)

		case chat.ToolResultMessage:
			if mapped, ok := idMap[m.ToolCallID]; ok {
				m.ToolCallID = mapped
			}
			rewritten = append(rewritten, m)

		case chat.AssistantMessage:
			if m.StopReason.IsTerminalError() {
				continue
			}
			rewritten = append(rewritten, transformAssistant(m, target, normalize, idMap))
		}
	}

	return repairOrphans(rewritten)
}

// transformAssistant applies the per-content-block same-model-vs-different-
// model rewrite rules to a single assistant message. idMap accumulates any
// tool-call id the normalizer chooses to change, keyed original → new.
func transformAssistant(msg chat.AssistantMessage, target chat.TargetModel, normalize Normalizer, idMap map[chat.ToolCallID]chat.ToolCallID) chat.AssistantMessage {
	sameModel := target.SameModelAs(msg)

	content := make([]chat.ContentBlock, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch b := block.(type) {
		case chat.ThinkingBlock:
			if transformed, keep := transformThinking(b, sameModel); keep {
				content = append(content, transformed)
			}

		case chat.TextBlock:
			if !sameModel {
				b.Signature = ""
			}
			content = append(content, b)

		case chat.ToolCallBlock:
			content = append(content, transformToolCall(b, target, msg, sameModel, normalize, idMap))

		case chat.ImageBlock:
			content = append(content, b)
		}
	}

	msg.Content = content
	return msg
}

// transformThinking applies the thinking-block rule: a same-model block with
// a signature replays unchanged; an empty block is dropped regardless of
// model; any other same-model block survives as-is; a different-model block
// becomes a plain text block carrying the same text with no signature.
func transformThinking(b chat.ThinkingBlock, sameModel bool) (chat.ContentBlock, bool) {
	if sameModel && b.Signature != "" {
		return b, true
	}
	if b.TrimmedEmpty() {
		return nil, false
	}
	if sameModel {
		return b, true
	}
	return chat.TextBlock{Text: b.Text}, true
}

// transformToolCall strips the thought signature for a different-model
// target and, when a normalizer is supplied, applies it and records any
// resulting id change in idMap.
func transformToolCall(b chat.ToolCallBlock, target chat.TargetModel, msg chat.AssistantMessage, sameModel bool, normalize Normalizer, idMap map[chat.ToolCallID]chat.ToolCallID) chat.ToolCallBlock {
	if !sameModel {
		b.ThoughtSignature = ""
	}
	if normalize == nil {
		return b
	}
	newID := normalize(b.ID, target, msg)
	if newID != b.ID {
		idMap[b.ID] = newID
		b.ID = newID
	}
	return b
}

// repairOrphans walks the rewritten sequence and, at each user or new
// assistant message boundary, synthesizes an error tool-result for any
// tool-call id declared by the previous assistant message that never
// received one. Trailing orphans at the end of the sequence (the assistant
// call that terminates the conversation) are left alone: there is no next
// boundary to repair before.
func repairOrphans(messages chat.Conversation) chat.Conversation {
	out := make(chat.Conversation, 0, len(messages))
	pending := make(map[chat.ToolCallID]string)
	var pendingOrder []chat.ToolCallID

	flush := func() {
		for _, id := range pendingOrder {
			if name, ok := pending[id]; ok {
				out = append(out, chat.NewErrorToolResult(id, name, 0))
			}
		}
		pending = make(map[chat.ToolCallID]string)
		pendingOrder = nil
	}

	for _, msg := range messages {
		switch m := msg.(type) {
		case chat.UserMessage:
			flush()
			out = append(out, m)

		case chat.AssistantMessage:
			flush()
			for _, block := range m.Content {
				if tc, ok := block.(chat.ToolCallBlock); ok {
					if _, seen := pending[tc.ID]; !seen {
						pendingOrder = append(pendingOrder, tc.ID)
					}
					pending[tc.ID] = tc.Name
				}
			}
			out = append(out, m)

		case chat.ToolResultMessage:
			delete(pending, m.ToolCallID)
			out = append(out, m)
		}
	}

	return out
}
