package openaicompat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/llmrelay/llmrelay/chat"
	"github.com/llmrelay/llmrelay/chatstream"
	"github.com/llmrelay/llmrelay/internal/httpstream"
	"github.com/llmrelay/llmrelay/model"
)

const chatCompletionsPath = "/chat/completions"

// Provider drives OpenAI-compatible streaming chat completions: it resolves
// compat, builds the request, issues the POST, and runs the block state
// machine against the SSE response.
type Provider struct {
	Client *http.Client
}

// New returns a Provider using http.DefaultClient. Assign Client directly to
// use a configured one (timeouts, proxies, mTLS).
func New() *Provider {
	return &Provider{}
}

func (p *Provider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

// StreamMessage issues a single streaming chat-completion call and returns
// the consumer end of a chatstream.Pipeline. Pre-stream failures (a missing
// API key, a request-build error, or the initial POST itself failing) are
// returned synchronously; everything after the POST succeeds is reported
// through the pipeline's events and terminal result instead.
func (p *Provider) StreamMessage(ctx context.Context, m model.Model, apiKey string, chatCtx chat.Context, opts RequestOptions) (*chatstream.Consumer, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	compat := ResolveCompat(m)

	req, err := BuildRequest(m, chatCtx, compat, opts)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: build request: %w", err)
	}

	url := strings.TrimRight(m.BaseURL, "/") + chatCompletionsPath
	resp, err := httpstream.PostStream(ctx, p.client(), url, apiKey, req, headerOptions(m)...)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	producer, consumer := chatstream.NewPipeline()
	go p.drive(ctx, resp, m, compat, producer)
	return consumer, nil
}

func headerOptions(m model.Model) []httpstream.HeaderOption {
	if len(m.Headers) == 0 {
		return nil
	}
	opts := make([]httpstream.HeaderOption, 0, len(m.Headers))
	for k, v := range m.Headers {
		opts = append(opts, httpstream.HeaderOption{Key: k, Value: v})
	}
	return opts
}

// drive owns the SSE response body for the lifetime of one streaming call,
// applying the block-transition algorithm chunk by chunk and finishing the
// pipeline exactly once, however the stream ends: normal completion, a
// provider error, or caller cancellation.
//
// A chunk carrying finish_reason only marks the stop reason; reading
// continues until EOF/[DONE] because providers that stream usage
// (stream_options.include_usage) send it in a separate chunk after the one
// carrying finish_reason. The exception is a finish_reason that maps to an
// error stop reason (content_filter): the pipeline is finished with an error
// at once and the rest of the stream is not read.
func (p *Provider) drive(ctx context.Context, resp *http.Response, m model.Model, compat ResolvedCompat, producer *chatstream.Producer) {
	defer httpstream.CloseWithLog(resp.Body)

	d := newStreamDriver(m, compat, producer)
	producer.Push(chat.NewStartEvent(d.message))

	scanner := httpstream.NewSSEScanner(resp.Body)
	finished := false

	for {
		if err := ctx.Err(); err != nil {
			producer.Abort(d.message, err)
			return
		}

		payload, err := scanner.Next()
		if err == io.EOF {
			// The [DONE] sentinel (or a body close) arrived; finalize with
			// whatever stop reason and usage have been accumulated so far.
			if !finished {
				d.finish("")
			}
			producer.Finish(d.message, nil)
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				producer.Abort(d.message, ctxErr)
				return
			}
			d.message.StopReason = chat.StopReasonError
			d.message.ErrorMessage = err.Error()
			producer.Finish(d.message, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
			return
		}

		chunk, err := unmarshalStreamChunk([]byte(payload))
		if err != nil {
			d.message.StopReason = chat.StopReasonError
			d.message.ErrorMessage = err.Error()
			producer.Finish(d.message, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
			return
		}

		if chunk.Usage != nil {
			d.applyUsage(chunk.Usage)
		}

		if finished {
			// Only a trailing usage-only chunk is expected past this point.
			continue
		}

		for _, choice := range chunk.Choices {
			d.applyDelta(choice.Delta)

			if choice.FinishReason != nil && *choice.FinishReason != "" {
				d.finish(*choice.FinishReason)
				finished = true
				if d.message.StopReason.IsTerminalError() {
					d.message.ErrorMessage = "response blocked by provider content filter"
					producer.Finish(d.message, fmt.Errorf("%w: content filtered", ErrInvalidResponse))
					return
				}
				break
			}
		}
	}
}

var statusPattern = regexp.MustCompile(`non-2xx status (\d+): (.*)`)

// classifyTransportError turns an httpstream error into a structured error
// value: a provider-reported non-2xx status becomes an APIError (tagged
// ContextOverflow when the classifier in contextoverflow.go matches),
// anything else is a bare TransportError.
func classifyTransportError(err error) error {
	if match := statusPattern.FindStringSubmatch(err.Error()); match != nil {
		status, convErr := strconv.Atoi(match[1])
		if convErr == nil {
			body := match[2]
			return &APIError{
				StatusCode:      status,
				Message:         body,
				ContextOverflow: IsContextOverflowStatus(status, body),
			}
		}
	}
	return &TransportError{Err: err}
}
