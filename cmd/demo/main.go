// Command demo drives a single chat completion against an OpenAI-compatible
// endpoint, printing each streamed event as it arrives. It is the thin
// boundary layer that reads environment variables and assembles a Model and
// a Dispatcher; the core packages never read os.Getenv themselves.
//
// Usage:
//
//	demo -provider openai -model gpt-4o-mini "What is the capital of France?"
//
// The API key is resolved from the environment based on -provider:
// OPENAI_API_KEY, OPENROUTER_API_KEY, MINIMAX_API_KEY, or MINIMAX_CN_API_KEY
// (MiniMax's mainland-China endpoint). A .env file in the working directory
// is loaded automatically if present.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/dispatch"
	"github.com/llmrelay/llmrelay/model"
	"github.com/llmrelay/llmrelay/openaicompat"

	_ "github.com/joho/godotenv/autoload"
)

// knownModels is a small hardcoded catalog standing in for the model
// registry a real deployment would load from configuration. Each entry
// names the environment variable the demo reads its API key from.
var knownModels = map[string]struct {
	model     model.Model
	envAPIKey string
}{
	"openai:gpt-4o-mini": {
		model: model.Model{
			ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: "openai", API: "chat.completions",
			BaseURL:       "https://api.openai.com/v1",
			InputKinds:    []model.InputKind{model.InputKindText, model.InputKindImage},
			ContextWindow: 128_000,
			MaxTokens:     16_384,
		},
		envAPIKey: "OPENAI_API_KEY",
	},
	"openrouter:gpt-4o-mini": {
		model: model.Model{
			ID: "openai/gpt-4o-mini", Name: "GPT-4o mini via OpenRouter", Provider: "openrouter", API: "chat.completions",
			BaseURL:       "https://openrouter.ai/api/v1",
			InputKinds:    []model.InputKind{model.InputKindText, model.InputKindImage},
			ContextWindow: 128_000,
			MaxTokens:     16_384,
		},
		envAPIKey: "OPENROUTER_API_KEY",
	},
	"minimax:minimax-m1": {
		model: model.Model{
			ID: "MiniMax-M1", Name: "MiniMax M1", Provider: "minimax", API: "chat.completions",
			BaseURL:          "https://api.minimax.io/v1",
			ReasoningCapable: true,
			InputKinds:       []model.InputKind{model.InputKindText},
			ContextWindow:    1_000_000,
			MaxTokens:        40_000,
		},
		envAPIKey: "MINIMAX_API_KEY",
	},
	"minimax-cn:minimax-m1": {
		model: model.Model{
			ID: "MiniMax-M1", Name: "MiniMax M1 (CN)", Provider: "minimax", API: "chat.completions",
			BaseURL:          "https://api.minimax.chat/v1",
			ReasoningCapable: true,
			InputKinds:       []model.InputKind{model.InputKindText},
			ContextWindow:    1_000_000,
			MaxTokens:        40_000,
		},
		envAPIKey: "MINIMAX_CN_API_KEY",
	},
}

func main() {
	provider := flag.String("provider", "openai", "provider key: openai, openrouter, minimax, minimax-cn")
	modelID := flag.String("model", "gpt-4o-mini", "model id as cataloged for the chosen provider")
	apiKeyFlag := flag.String("api-key", "", "API key; overrides the provider's environment variable when set")
	verbose := flag.Bool("verbose", false, "log request/response content (do not use with real user data)")
	flag.Parse()

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		log.Fatal("usage: demo [flags] \"prompt text\"")
	}

	catalogKey := *provider + ":" + *modelID
	entry, ok := knownModels[catalogKey]
	if !ok {
		log.Fatalf("unknown provider/model combination %q", catalogKey)
	}

	apiKey := *apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv(entry.envAPIKey)
	}
	if apiKey == "" {
		log.Fatalf("no API key: set -api-key or the %s environment variable", entry.envAPIKey)
	}

	logLevel := dispatch.LogLevelStandard
	if *verbose {
		logLevel = dispatch.LogLevelVerbose
	}

	d := dispatch.New(openaicompat.New(), dispatch.WithLogger(slog.Default()), dispatch.WithLogLevel(logLevel))

	chatCtx := chat.Context{
		Messages: chat.Conversation{chat.NewUserText(prompt, 0)},
	}

	es, err := d.Stream(context.Background(), entry.model, apiKey, chatCtx, openaicompat.RequestOptions{})
	if err != nil {
		log.Fatalf("stream failed: %v", err)
	}

	for event := range es.Iter() {
		switch event.Kind {
		case chat.EventTextDelta, chat.EventThinkingDelta:
			fmt.Print(event.TextDelta)
		case chat.EventDone:
			fmt.Printf("\n\n[stop_reason=%s tokens=%d cost=$%.6f]\n",
				event.Message.StopReason, event.Message.Usage.TotalTokens, event.Message.Usage.Cost.Total)
		case chat.EventError:
			fmt.Printf("\n\n[error: %v]\n", event.Err)
		}
	}
}
