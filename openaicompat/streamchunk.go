package openaicompat

import (
	"encoding/json"
	"fmt"
)

// streamChunk is a single SSE data payload from the chat-completions
// streaming endpoint, covering the four reasoning-field variants different
// providers use and OpenRouter's cost-extension usage fields.
type streamChunk struct {
	Choices []streamChoice `json:"choices"`
	Usage   *streamUsage   `json:"usage"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Content *string `json:"content"`

	// Reasoning field variants, checked in priority order:
	// reasoning_details[*].text first, then reasoning_content, then
	// reasoning, then reasoning_text.
	ReasoningDetails []streamReasoningDetail `json:"reasoning_details"`
	ReasoningContent *string                 `json:"reasoning_content"`
	Reasoning        *string                 `json:"reasoning"`
	ReasoningText    *string                 `json:"reasoning_text"`

	ToolCalls []streamToolCallDelta `json:"tool_calls"`
}

type streamReasoningDetail struct {
	Text string `json:"text"`
}

type streamToolCallDelta struct {
	Index    *int                `json:"index"`
	ID       *string             `json:"id"`
	Function streamFunctionDelta `json:"function"`
}

type streamFunctionDelta struct {
	Name      *string `json:"name"`
	Arguments *string `json:"arguments"`
}

// streamUsage carries the final usage snapshot plus the cache and cost
// extension fields OpenRouter and MiniMax attach to it.
type streamUsage struct {
	PromptTokens             int                  `json:"prompt_tokens"`
	CompletionTokens         int                  `json:"completion_tokens"`
	TotalTokens              *int                 `json:"total_tokens"`
	CacheReadInputTokens     *int                 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens *int                 `json:"cache_creation_input_tokens"`
	PromptTokensDetails      *streamPromptDetails `json:"prompt_tokens_details"`
	Cost                     *float64             `json:"cost"`
	CostDetails              *streamCostDetails   `json:"cost_details"`
}

type streamPromptDetails struct {
	CachedTokens     *int `json:"cached_tokens"`
	CacheWriteTokens *int `json:"cache_write_tokens"`
}

type streamCostDetails struct {
	UpstreamInferenceCost *float64 `json:"upstream_inference_cost"`
}

func unmarshalStreamChunk(data []byte) (*streamChunk, error) {
	var chunk streamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("openaicompat: decode stream chunk: %w", err)
	}
	return &chunk, nil
}
