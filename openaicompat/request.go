package openaicompat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/model"
)

// RequestOptions carries the per-call knobs that aren't part of the model
// descriptor or the conversation: sampling temperature and the reasoning
// effort label to request from a reasoning-capable model.
type RequestOptions struct {
	Temperature     *float64
	ReasoningEffort string
}

// wireRequest is the chat-completions request body shape.
type wireRequest struct {
	Model               string             `json:"model"`
	Messages            []wireMessage      `json:"messages"`
	MaxTokens           *int               `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int               `json:"max_completion_tokens,omitempty"`
	Temperature         *float64           `json:"temperature,omitempty"`
	Stream              bool               `json:"stream"`
	StreamOptions       *wireStreamOptions `json:"stream_options,omitempty"`
	Tools               []wireTool         `json:"tools,omitempty"`
	ReasoningEffort      string             `json:"reasoning_effort,omitempty"`
	ReasoningSplit       bool               `json:"reasoning_split,omitempty"`
	Store               *bool              `json:"store,omitempty"`
}

type wireStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// wireMessage is the per-role chat-completions message shape. Content holds
// either a bare string, a []wireContentPart, or nil (omitted) depending on
// the conversion rule that produced it.
type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// smallestPositiveFloat64 is the smallest representable positive number,
// used as the lower clamp bound for MiniMax's (0,1] temperature range.
const smallestPositiveFloat64 = math.SmallestNonzeroFloat64

// BuildRequest shapes a chat-completions request body for a single call,
// applying the per-field and per-role conversion rules for the target
// compat surface.
func BuildRequest(m model.Model, ctx chat.Context, compat ResolvedCompat, opts RequestOptions) (*wireRequest, error) {
	req := &wireRequest{
		Model:  m.ID,
		Stream: true,
	}

	if compat.SupportsUsageInStreaming {
		req.StreamOptions = &wireStreamOptions{IncludeUsage: true}
	}

	if ctx.SystemPrompt != "" {
		role := "system"
		if compat.SupportsDeveloperRole {
			role = "developer"
		}
		req.Messages = append(req.Messages, wireMessage{Role: role, Content: ctx.SystemPrompt})
	}

	for _, msg := range ctx.Messages {
		wireMsg, ok, err := convertMessage(msg, m, compat)
		if err != nil {
			return nil, err
		}
		if ok {
			req.Messages = append(req.Messages, wireMsg)
		}
	}

	if m.MaxTokens > 0 {
		maxTokens := m.MaxTokens
		if compat.MaxTokensField == MaxTokensFieldMaxCompletionTokens {
			req.MaxCompletionTokens = &maxTokens
		} else {
			req.MaxTokens = &maxTokens
		}
	}

	if opts.Temperature != nil {
		temp := *opts.Temperature
		if compat.isMiniMax {
			temp = clampTemperature(temp, smallestPositiveFloat64, 1.0)
		}
		req.Temperature = &temp
	}

	for _, tool := range ctx.Tools {
		req.Tools = append(req.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if m.ReasoningCapable && compat.SupportsReasoningEffort && opts.ReasoningEffort != "" {
		req.ReasoningEffort = opts.ReasoningEffort
	}
	if compat.RequiresReasoningSplit && m.ReasoningCapable {
		req.ReasoningSplit = true
	}
	if !compat.SupportsStore {
		store := false
		req.Store = &store
	}

	return req, nil
}

func clampTemperature(t, min, max float64) float64 {
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}

// convertMessage dispatches a single chat.Message to its wire shape using
// the per-role conversion rules below. ok is false when the message should
// be omitted entirely (an assistant turn with neither text nor tool calls).
func convertMessage(msg chat.Message, m model.Model, compat ResolvedCompat) (wireMessage, bool, error) {
	switch v := msg.(type) {
	case chat.UserMessage:
		return convertUserMessage(v, m), true, nil
	case chat.AssistantMessage:
		return convertAssistantMessage(v, compat)
	case chat.ToolResultMessage:
		return convertToolResultMessage(v, compat), true, nil
	default:
		return wireMessage{}, false, fmt.Errorf("openaicompat: unknown message type %T", msg)
	}
}

// convertUserMessage converts a user turn: a single signature-less text
// block becomes a raw string; anything else becomes an array of typed
// parts, with image parts dropped when the model can't accept image input.
func convertUserMessage(msg chat.UserMessage, m model.Model) wireMessage {
	if len(msg.Content) == 1 {
		if text, ok := msg.Content[0].(chat.TextBlock); ok && text.Signature == "" {
			return wireMessage{Role: "user", Content: sanitizeText(text.Text)}
		}
	}

	var parts []wireContentPart
	for _, block := range msg.Content {
		switch b := block.(type) {
		case chat.TextBlock:
			parts = append(parts, wireContentPart{Type: "text", Text: sanitizeText(b.Text)})
		case chat.ImageBlock:
			if !m.SupportsImageInput() {
				continue
			}
			parts = append(parts, wireContentPart{
				Type:     "image_url",
				ImageURL: &wireImageURL{URL: imageDataURL(b)},
			})
		}
	}
	return wireMessage{Role: "user", Content: parts}
}

func imageDataURL(b chat.ImageBlock) string {
	return fmt.Sprintf("data:%s;base64,%s", b.MimeType, base64.StdEncoding.EncodeToString(b.Data))
}

// sanitizeText strips U+FFFD replacement characters before text reaches the
// wire; everything else passes through untouched.
func sanitizeText(s string) string {
	if !strings.ContainsRune(s, '�') {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '�' {
			return -1
		}
		return r
	}, s)
}

// convertAssistantMessage converts an assistant turn, including the
// MiniMax thinking-replay rule: thinking blocks are re-wrapped as
// <think>...</think> and concatenated with text when the target compat's
// ThinkingFormat is think-tag; otherwise they're dropped unless
// RequiresThinkingAsText asks for a plain-text rendering instead.
func convertAssistantMessage(msg chat.AssistantMessage, compat ResolvedCompat) (wireMessage, bool, error) {
	var text strings.Builder
	var toolCalls []wireToolCall

	for _, block := range msg.Content {
		switch b := block.(type) {
		case chat.TextBlock:
			text.WriteString(sanitizeText(b.Text))
		case chat.ThinkingBlock:
			switch {
			case compat.ThinkingFormat == ThinkingFormatThinkTag:
				text.WriteString("<think>")
				text.WriteString(sanitizeText(b.Text))
				text.WriteString("</think>")
			case compat.RequiresThinkingAsText:
				text.WriteString(sanitizeText(b.Text))
			}
		case chat.ToolCallBlock:
			args, err := json.Marshal(b.Arguments)
			if err != nil {
				return wireMessage{}, false, fmt.Errorf("openaicompat: marshal tool call arguments: %w", err)
			}
			toolCalls = append(toolCalls, wireToolCall{
				ID:   string(b.ID),
				Type: "function",
				Function: wireToolCallFunc{
					Name:      b.Name,
					Arguments: string(args),
				},
			})
		}
	}

	content := text.String()
	if content == "" && len(toolCalls) == 0 {
		return wireMessage{}, false, nil
	}

	wireMsg := wireMessage{Role: "assistant", ToolCalls: toolCalls}
	if content != "" {
		wireMsg.Content = content
	}
	return wireMsg, true, nil
}

// convertToolResultMessage converts a tool result into concatenated text
// content under role "tool", with an added "name" field when the provider
// requires it.
func convertToolResultMessage(msg chat.ToolResultMessage, compat ResolvedCompat) wireMessage {
	var text strings.Builder
	for _, block := range msg.Content {
		if t, ok := block.(chat.TextBlock); ok {
			text.WriteString(sanitizeText(t.Text))
		}
	}

	wireMsg := wireMessage{
		Role:       "tool",
		Content:    text.String(),
		ToolCallID: string(msg.ToolCallID),
	}
	if compat.RequiresToolResultName {
		wireMsg.Name = msg.ToolName
	}
	return wireMsg
}
