package dispatch

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/model"
	"github.com/llmrelay/llmrelay/observability"
	"github.com/llmrelay/llmrelay/openaicompat"
)

// Dispatcher is the single entry point for issuing a chat-completion call
// against a provider. Construct one with New and call Stream for the live
// event sequence or Send for a synchronous one-shot result.
type Dispatcher struct {
	stream      StreamFunc
	logger      *slog.Logger
	logLevel    LogLevel
	observer    observability.Provider
	retryConfig RetryConfig
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithLogger sets the structured logger used for call start/completion
// entries. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithLogLevel sets the verbosity of dispatch logging. Defaults to
// LogLevelStandard.
func WithLogLevel(level LogLevel) Option {
	return func(d *Dispatcher) { d.logLevel = level }
}

// WithObserver attaches a tracing/metrics provider. Spans are only started
// when this is set.
func WithObserver(observer observability.Provider) Option {
	return func(d *Dispatcher) { d.observer = observer }
}

// WithRetryConfig overrides the retry behavior used by Send. Stream never
// retries, regardless of this setting.
func WithRetryConfig(config RetryConfig) Option {
	return func(d *Dispatcher) { d.retryConfig = config }
}

// New builds a Dispatcher around provider's streaming call.
func New(provider *openaicompat.Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		stream:   provider.StreamMessage,
		logger:   slog.Default(),
		logLevel: LogLevelStandard,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stream issues a streaming call and returns an EventStream over its
// events. It never retries: a failure that happens before any event is
// produced is returned directly, and a failure mid-stream surfaces as a
// terminal Error event from EventStream.Iter, never as a second attempt.
func (d *Dispatcher) Stream(ctx context.Context, m model.Model, apiKey string, chatCtx chat.Context, opts openaicompat.RequestOptions) (*EventStream, error) {
	requestID := uuid.NewString()

	var span observability.Span
	if d.observer != nil {
		ctx, span = d.observer.StartSpan(ctx, observability.SpanDispatchSend,
			observability.String("request_id", requestID),
			observability.String(observability.AttrLLMModel, m.ID),
			observability.String(observability.AttrLLMProvider, m.Provider),
		)
	}

	start := time.Now()
	logStart(ctx, d.logger, requestID, m.ID, chatCtx, d.logLevel)

	consumer, err := d.stream(ctx, m, apiKey, chatCtx, opts)
	if err != nil {
		logOutcome(ctx, d.logger, requestID, m.ID, time.Since(start), chat.AssistantMessage{}, err, d.logLevel)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
			span.End()
		}
		return nil, err
	}

	return &EventStream{
		ctx:       ctx,
		consumer:  consumer,
		logger:    d.logger,
		logLevel:  d.logLevel,
		model:     m.ID,
		requestID: requestID,
		start:     start,
		span:      span,
	}, nil
}

// Send issues a call and blocks for its final assistant message, retrying a
// pre-stream failure with exponential backoff. A mid-stream failure (one
// that occurs after the call has already produced a live consumer) is
// returned as-is and is never retried.
func (d *Dispatcher) Send(ctx context.Context, m model.Model, apiKey string, chatCtx chat.Context, opts openaicompat.RequestOptions) (chat.AssistantMessage, error) {
	requestID := uuid.NewString()

	var span observability.Span
	if d.observer != nil {
		ctx, span = d.observer.StartSpan(ctx, observability.SpanDispatchSend,
			observability.String("request_id", requestID),
			observability.String(observability.AttrLLMModel, m.ID),
			observability.String(observability.AttrLLMProvider, m.Provider),
		)
		defer span.End()
	}

	start := time.Now()
	logStart(ctx, d.logger, requestID, m.ID, chatCtx, d.logLevel)

	stream := withRetry(d.retryConfig, d.stream)
	consumer, err := stream(ctx, m, apiKey, chatCtx, opts)
	if err != nil {
		logOutcome(ctx, d.logger, requestID, m.ID, time.Since(start), chat.AssistantMessage{}, err, d.logLevel)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		}
		return chat.AssistantMessage{}, err
	}

	message, err := consumer.Result()
	logOutcome(ctx, d.logger, requestID, m.ID, time.Since(start), message, err, d.logLevel)
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		} else {
			span.SetAttributes(
				observability.String(observability.AttrLLMStopReason, string(message.StopReason)),
				observability.Int(observability.AttrLLMTokensTotal, message.Usage.TotalTokens),
			)
		}
	}
	return message, err
}

// EventStream wraps a live chatstream.Consumer, synthesizing the terminal
// Done/Error event from the consumer's Result once the queued events are
// drained (the provider engine pushes only non-terminal events; the
// terminal outcome travels separately via Finish).
type EventStream struct {
	ctx       context.Context
	consumer  *chatstream.Consumer
	logger    *slog.Logger
	logLevel  LogLevel
	model     string
	requestID string
	start     time.Time
	span      observability.Span
}

// Iter returns a range-over-func iterator over the full event sequence,
// including the synthesized terminal Done or Error event.
func (s *EventStream) Iter() iter.Seq[chat.Event] {
	return func(yield func(chat.Event) bool) {
		for event := range s.consumer.Iter() {
			if !yield(event) {
				return
			}
		}

		message, err := s.consumer.Result()
		logOutcome(s.ctx, s.logger, s.requestID, s.model, time.Since(s.start), message, err, s.logLevel)
		if s.span != nil {
			if err != nil {
				s.span.RecordError(err)
				s.span.SetStatus(observability.StatusError, err.Error())
			} else {
				s.span.SetAttributes(
					observability.String(observability.AttrLLMStopReason, string(message.StopReason)),
					observability.Int(observability.AttrLLMTokensTotal, message.Usage.TotalTokens),
				)
			}
			s.span.End()
		}

		if err != nil {
			yield(chat.NewErrorEvent(message.StopReason, err, message))
			return
		}
		yield(chat.NewDoneEvent(message.StopReason, message))
	}
}

// Result blocks until the stream reaches its terminal outcome and returns
// it directly, bypassing Iter. Safe to call whether or not Iter has been
// consumed.
func (s *EventStream) Result() (chat.AssistantMessage, error) {
	return s.consumer.Result()
}
