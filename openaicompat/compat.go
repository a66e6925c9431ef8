package openaicompat

import (
	"strings"

	"github.com/llmrelay/llmrelay/model"
)

// MaxTokensField selects which wire field carries the output token budget;
// providers disagree on whether it's the legacy or the reasoning-era name.
type MaxTokensField string

const (
	MaxTokensFieldMaxTokens           MaxTokensField = "max_tokens"
	MaxTokensFieldMaxCompletionTokens MaxTokensField = "max_completion_tokens"
)

// ThinkingFormat selects how a provider exposes chain-of-thought reasoning.
type ThinkingFormat string

const (
	// ThinkingFormatOpenAI means reasoning arrives in a dedicated delta
	// field (reasoning_details/reasoning_content/reasoning/reasoning_text).
	ThinkingFormatOpenAI ThinkingFormat = "openai"
	// ThinkingFormatZAI is the Zhipu/Z.ai reasoning-field convention; it
	// shares the dedicated-field extraction path with ThinkingFormatOpenAI
	// today and exists as a distinct value because its field priority may
	// diverge in the future.
	ThinkingFormatZAI ThinkingFormat = "zai"
	// ThinkingFormatThinkTag means reasoning is inlined in `content` as
	// <think>...</think> and must be pulled out by the tag parser.
	ThinkingFormatThinkTag ThinkingFormat = "think-tag"
)

// ResolvedCompat is the per-call capability profile the request builder and
// stream driver consult instead of branching on provider name directly.
// Compute one with ResolveCompat; its fields are read-only from that point.
type ResolvedCompat struct {
	SupportsStore            bool
	SupportsDeveloperRole    bool
	SupportsReasoningEffort  bool
	SupportsUsageInStreaming bool
	MaxTokensField           MaxTokensField

	RequiresToolResultName bool
	// RequiresAssistantAfterToolResult is reserved: no detection rule sets
	// it and nothing currently branches on it, since guessing at the
	// ordering requirement risks silently mis-ordering a request. A future
	// provider quirk may need it.
	RequiresAssistantAfterToolResult bool
	RequiresThinkingAsText          bool
	// RequiresMistralToolIDs flags that tool-call ids must be exactly nine
	// alphanumeric characters. The package exposes this but does not
	// enforce it: id shape is the transformer's caller-supplied normalizer
	// callback's responsibility, since only the caller knows how to mint a
	// conforming id from an arbitrary original one.
	RequiresMistralToolIDs bool

	ThinkingFormat ThinkingFormat
	// RequiresReasoningSplit mirrors MiniMax's reasoning_split request
	// field: true only for MiniMax endpoints serving a reasoning-capable
	// model.
	RequiresReasoningSplit bool

	isMiniMax bool
}

// ResolveCompat computes a ResolvedCompat for the given model by matching its
// base URL against known providers, then applying any explicit overrides the
// model descriptor carries. Explicit overrides always win over detection.
func ResolveCompat(m model.Model) ResolvedCompat {
	compat := detectByBaseURL(m.BaseURL)
	if m.ReasoningCapable && compat.isMiniMax {
		compat.ThinkingFormat = ThinkingFormatThinkTag
		compat.RequiresReasoningSplit = true
	}
	applyOverrides(&compat, m.CompatOverrides)
	return compat
}

// detectByBaseURL sniffs provider capabilities from substrings in the base
// URL, covering OpenAI, Azure, Ollama, OpenRouter, MiniMax, Z.ai, and
// Mistral endpoints.
func detectByBaseURL(baseURL string) ResolvedCompat {
	lower := strings.ToLower(baseURL)

	switch {
	case strings.Contains(lower, "api.openai.com"):
		return ResolvedCompat{
			SupportsStore:            true,
			SupportsDeveloperRole:    true,
			SupportsReasoningEffort:  true,
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxCompletionTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
		}

	case strings.Contains(lower, "azure.com"), strings.Contains(lower, "openai.azure"):
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
		}

	case strings.Contains(lower, "localhost:11434"), strings.Contains(lower, "127.0.0.1:11434"):
		return ResolvedCompat{
			MaxTokensField: MaxTokensFieldMaxTokens,
			ThinkingFormat: ThinkingFormatOpenAI,
		}

	case strings.Contains(lower, "openrouter.ai"):
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
		}

	case strings.Contains(lower, "api.minimax.io"), strings.Contains(lower, "api.minimax.chat"):
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
			isMiniMax:                true,
		}

	case strings.Contains(lower, "api.z.ai"), strings.Contains(lower, "bigmodel.cn"):
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatZAI,
		}

	case strings.Contains(lower, "api.mistral.ai"):
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
			RequiresMistralToolIDs:   true,
		}

	default:
		// Defaults for an unrecognized endpoint: usage in streaming, the
		// max_tokens field, and OpenAI-style reasoning fields.
		return ResolvedCompat{
			SupportsUsageInStreaming: true,
			MaxTokensField:           MaxTokensFieldMaxTokens,
			ThinkingFormat:           ThinkingFormatOpenAI,
		}
	}
}

func applyOverrides(compat *ResolvedCompat, overrides *model.CompatOverrides) {
	if overrides == nil {
		return
	}
	if overrides.SupportsStore != nil {
		compat.SupportsStore = *overrides.SupportsStore
	}
	if overrides.SupportsDeveloperRole != nil {
		compat.SupportsDeveloperRole = *overrides.SupportsDeveloperRole
	}
	if overrides.SupportsReasoningEffort != nil {
		compat.SupportsReasoningEffort = *overrides.SupportsReasoningEffort
	}
	if overrides.SupportsUsageInStreaming != nil {
		compat.SupportsUsageInStreaming = *overrides.SupportsUsageInStreaming
	}
	if overrides.RequiresToolResultName != nil {
		compat.RequiresToolResultName = *overrides.RequiresToolResultName
	}
	if overrides.RequiresThinkingAsText != nil {
		compat.RequiresThinkingAsText = *overrides.RequiresThinkingAsText
	}
	if overrides.RequiresMistralToolIDs != nil {
		compat.RequiresMistralToolIDs = *overrides.RequiresMistralToolIDs
	}
}
