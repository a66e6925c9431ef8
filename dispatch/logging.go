package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/llmrelay/llmrelay/chat"
)

// LogLevel controls how much detail the dispatcher logs per call.
type LogLevel int

const (
	// LogLevelMinimal logs only the model name and total duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard additionally logs the message count, stop reason, and
	// token usage. This is the recommended default.
	LogLevelStandard

	// LogLevelVerbose additionally logs the first user message and the
	// final assistant text, each truncated to truncateLen characters.
	//
	// Do not use LogLevelVerbose in production: it logs raw prompt and
	// response content, which may carry sensitive user data.
	LogLevelVerbose
)

const truncateLen = 500

// logStart emits the pre-call log entry shared by Stream and Send. requestID
// correlates this entry with its matching logOutcome entry across
// concurrent calls sharing the same logger.
func logStart(ctx context.Context, logger *slog.Logger, requestID string, m string, chatCtx chat.Context, level LogLevel) {
	attrs := []any{slog.String("request_id", requestID), slog.String("model", m)}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(chatCtx.Messages)))
	}

	if level >= LogLevelVerbose {
		if first, ok := firstUserText(chatCtx); ok {
			attrs = append(attrs, slog.String("first_message", truncate(first)))
		}
	}

	logger.InfoContext(ctx, "dispatch call", attrs...)
}

// logOutcome emits the post-call log entry once the terminal result (message
// or error) is known.
func logOutcome(ctx context.Context, logger *slog.Logger, requestID string, m string, elapsed time.Duration, message chat.AssistantMessage, err error, level LogLevel) {
	if err != nil {
		logger.ErrorContext(ctx, "dispatch call failed",
			slog.String("request_id", requestID),
			slog.String("model", m),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return
	}

	attrs := []any{
		slog.String("request_id", requestID),
		slog.String("model", m),
		slog.Duration("duration", elapsed),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.String("stop_reason", string(message.StopReason)),
			slog.Int("prompt_tokens", message.Usage.InputTokens),
			slog.Int("completion_tokens", message.Usage.OutputTokens),
			slog.Int("total_tokens", message.Usage.TotalTokens),
		)
	}

	if level >= LogLevelVerbose {
		if text, ok := finalAssistantText(message); ok {
			attrs = append(attrs, slog.String("response_text", truncate(text)))
		}
	}

	logger.InfoContext(ctx, "dispatch call completed", attrs...)
}

func truncate(s string) string {
	if len(s) <= truncateLen {
		return s
	}
	return s[:truncateLen]
}

func firstUserText(chatCtx chat.Context) (string, bool) {
	for _, msg := range chatCtx.Messages {
		user, ok := msg.(chat.UserMessage)
		if !ok {
			continue
		}
		for _, block := range user.Content {
			if text, ok := block.(chat.TextBlock); ok {
				return text.Text, true
			}
		}
	}
	return "", false
}

func finalAssistantText(message chat.AssistantMessage) (string, bool) {
	for _, block := range message.Content {
		if text, ok := block.(chat.TextBlock); ok {
			return text.Text, true
		}
	}
	return "", false
}
