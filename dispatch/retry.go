package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/model"
	"github.com/llmrelay/llmrelay/openaicompat"
)

// StreamFunc is the shape of a streaming provider call: issue the request
// and return its event-pipeline consumer, or a synchronous pre-stream error.
type StreamFunc func(ctx context.Context, m model.Model, apiKey string, chatCtx chat.Context, opts openaicompat.RequestOptions) (*chatstream.Consumer, error)

// RetryConfig tunes the exponential-backoff retry applied to Send. Zero
// values are replaced with the defaults below by applyRetryDefaults.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first failure.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier applied per
	// attempt: backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction*backoff] to
	// avoid synchronized retries across callers. Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether an error should trigger another
	// attempt. The default retries transport failures and API errors
	// carrying a 429/500/502/503/529 status.
	RetryableFunc func(error) bool
}

func defaultRetryableFunc(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openaicompat.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 529:
			return true
		default:
			return false
		}
	}

	var transportErr *openaicompat.TransportError
	return errors.As(err, &transportErr)
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = defaultRetryableFunc
	}
}

// computeBackoff returns the backoff duration for the given 0-indexed retry attempt.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}
	jitter := base * config.JitterFraction * rand.Float64()
	return time.Duration(base + jitter)
}

// withRetry wraps stream so a synchronous pre-stream failure (the only kind
// a streaming call can return directly) is retried with exponential
// backoff. Once stream returns a live consumer the wrapping is done: any
// error carried by that consumer's terminal result is a mid-stream failure
// and is never retried here.
func withRetry(config RetryConfig, stream StreamFunc) StreamFunc {
	applyRetryDefaults(&config)

	return func(ctx context.Context, m model.Model, apiKey string, chatCtx chat.Context, opts openaicompat.RequestOptions) (*chatstream.Consumer, error) {
		var lastErr error

		for attempt := 0; attempt <= config.MaxRetries; attempt++ {
			if attempt > 0 {
				backoff := computeBackoff(config, attempt-1)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
			}

			consumer, err := stream(ctx, m, apiKey, chatCtx, opts)
			if err == nil {
				return consumer, nil
			}

			lastErr = err
			if !config.RetryableFunc(err) {
				return nil, err
			}
		}

		return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
	}
}
