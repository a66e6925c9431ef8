package httpstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/llmrelay/llmrelay/observability"
)

// maxSSELineSize bounds a single SSE line; the default bufio.Scanner limit
// of 64 KiB is too small for a long tool-call-argument or completion chunk.
const maxSSELineSize = 1 * 1024 * 1024

// maxErrorBodySize bounds how much of a non-2xx response body gets read into
// an error message, so a misbehaving endpoint can't exhaust memory.
const maxErrorBodySize int64 = 1 * 1024 * 1024

// HeaderOption is a single custom HTTP header applied after the default
// Authorization/Content-Type headers, so it can override either.
type HeaderOption struct {
	Key   string
	Value string
}

// CloseWithLog closes c and logs any error rather than discarding it, for use
// in defer statements where the close error must not shadow the function's
// primary return value.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("httpstream: failed to close response body", "error", err.Error())
	}
}

// PostStream issues a streaming JSON POST and returns the open response for
// SSE consumption. The caller owns the response body and must close it;
// typically by driving an SSEScanner to completion or by deferring
// CloseWithLog on an early return.
//
// On a non-2xx response the body is read, closed, and turned into an error;
// the caller never has to special-case the close in that branch.
func PostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpstream: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("httpstream: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	if span != nil {
		span.AddEvent(observability.EventStreamRequestStart,
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if span != nil {
			span.AddEvent(observability.EventStreamRequestEnd,
				observability.Error(err),
				observability.Duration(observability.AttrDuration, duration),
			)
		}
		return resp, fmt.Errorf("httpstream: send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer CloseWithLog(resp.Body)
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			return resp, fmt.Errorf("httpstream: non-2xx status %d (failed to read body: %v)", resp.StatusCode, readErr)
		}
		return resp, fmt.Errorf("httpstream: non-2xx status %d: %s", resp.StatusCode, string(errBody))
	}

	if span != nil {
		span.AddEvent(observability.EventStreamRequestEnd,
			observability.Int(observability.AttrHTTPStatusCode, resp.StatusCode),
			observability.Duration(observability.AttrDuration, duration),
		)
	}

	return resp, nil
}

// SSEScanner reads server-sent events from a reader, joining multi-line
// data fields, skipping comments and blank-keepalive lines, and surfacing
// the [DONE] sentinel as io.EOF.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner wraps r as an SSEScanner. Individual lines are capped at
// maxSSELineSize; a longer line surfaces a wrapped bufio.ErrTooLong from Next.
func NewSSEScanner(r io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event's joined data payload. It returns io.EOF once
// the stream is exhausted or the [DONE] sentinel is seen.
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// event:, id:, retry: fields carry nothing this protocol needs.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("httpstream: scan SSE stream: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
