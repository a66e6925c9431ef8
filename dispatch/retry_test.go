package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/model"
	"github.com/llmrelay/llmrelay/openaicompat"
)

// streamSequence is a StreamFunc stand-in whose return sequence is
// configurable per call.
type streamSequence struct {
	errors    []error
	callCount int
}

func (s *streamSequence) next(_ context.Context, _ model.Model, _ string, _ chat.Context, _ openaicompat.RequestOptions) (*chatstream.Consumer, error) {
	index := s.callCount
	s.callCount++

	if index < len(s.errors) && s.errors[index] != nil {
		return nil, s.errors[index]
	}

	_, consumer := chatstream.NewPipeline()
	return consumer, nil
}

func finishedPipeline() *chatstream.Consumer {
	producer, consumer := chatstream.NewPipeline()
	producer.Finish(chat.AssistantMessage{StopReason: chat.StopReasonStop}, nil)
	return consumer
}

func TestWithRetry_SuccessOnFirstTry(t *testing.T) {
	seq := &streamSequence{}
	stream := withRetry(RetryConfig{MaxRetries: 3}, seq.next)

	_, err := stream(context.Background(), model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 1 {
		t.Errorf("expected 1 call, got %d", seq.callCount)
	}
}

func TestWithRetry_RetryThenSuccess(t *testing.T) {
	seq := &streamSequence{
		errors: []error{&openaicompat.APIError{StatusCode: 503, Message: "unavailable"}},
	}

	stream := withRetry(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, seq.next)

	_, err := stream(context.Background(), model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", seq.callCount)
	}
}

func TestWithRetry_NonRetryableStatusFailsImmediately(t *testing.T) {
	seq := &streamSequence{
		errors: []error{&openaicompat.APIError{StatusCode: 400, Message: "bad request"}},
	}

	stream := withRetry(RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond}, seq.next)

	_, err := stream(context.Background(), model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if seq.callCount != 1 {
		t.Errorf("expected no retry for a non-retryable status, got %d calls", seq.callCount)
	}
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	callCount := 0
	alwaysFail := func(_ context.Context, _ model.Model, _ string, _ chat.Context, _ openaicompat.RequestOptions) (*chatstream.Consumer, error) {
		callCount++
		return nil, &openaicompat.APIError{StatusCode: 503, Message: "unavailable"}
	}

	stream := withRetry(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, alwaysFail)

	_, err := stream(context.Background(), model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 4 {
		t.Errorf("expected 1 initial attempt + 3 retries = 4 calls, got %d", callCount)
	}
}

func TestWithRetry_TransportErrorIsRetryable(t *testing.T) {
	seq := &streamSequence{
		errors: []error{&openaicompat.TransportError{Err: errors.New("connection reset")}},
	}

	stream := withRetry(RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, seq.next)

	_, err := stream(context.Background(), model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", seq.callCount)
	}
}

func TestWithRetry_ContextCancellationDuringBackoffStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alwaysFail := func(_ context.Context, _ model.Model, _ string, _ chat.Context, _ openaicompat.RequestOptions) (*chatstream.Consumer, error) {
		return nil, &openaicompat.APIError{StatusCode: 503, Message: "unavailable"}
	}

	stream := withRetry(RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour}, alwaysFail)

	_, err := stream(ctx, model.Model{}, "key", chat.Context{}, openaicompat.RequestOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestComputeBackoff_GrowsExponentiallyAndCaps(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2,
		JitterFraction: 0,
	}

	if got := computeBackoff(config, 0); got != time.Second {
		t.Errorf("attempt 0 = %v, want 1s", got)
	}
	if got := computeBackoff(config, 1); got != 2*time.Second {
		t.Errorf("attempt 1 = %v, want 2s", got)
	}
	if got := computeBackoff(config, 10); got != 5*time.Second {
		t.Errorf("attempt 10 should be capped at MaxBackoff, got %v", got)
	}
}

func TestDefaultRetryableFunc(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"429 rate limited", &openaicompat.APIError{StatusCode: 429}, true},
		{"500 internal error", &openaicompat.APIError{StatusCode: 500}, true},
		{"400 bad request", &openaicompat.APIError{StatusCode: 400}, false},
		{"404 not found", &openaicompat.APIError{StatusCode: 404}, false},
		{"transport error", &openaicompat.TransportError{Err: errors.New("dial tcp: timeout")}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := defaultRetryableFunc(tc.err); got != tc.want {
				t.Errorf("defaultRetryableFunc(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
