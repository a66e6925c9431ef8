// Package partialjson parses possibly-truncated JSON emitted mid-stream: a
// tool call's argument buffer that only grows one fragment at a time and
// must still produce a best-effort structured value after every fragment.
package partialjson

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// closingSuffixes are tried, in order, appended to the raw buffer before
// falling back to bracket-counting. They cover the handful of truncation
// points that show up constantly in streamed tool-call arguments: mid
// object, mid string value, mid null, mid nested array/object.
var closingSuffixes = []string{
	"",
	"}",
	"}}",
	"\"}",
	"null}",
	"]}",
	"\"}}",
	"]}}",
}

// Parse attempts to decode buf as a best-effort structured value, trying
// progressively more aggressive repair strategies:
//
//  1. the buffer verbatim;
//  2. the buffer with each of a short list of closing suffixes appended;
//  3. the buffer closed by counting open brackets/braces and unterminated
//     strings and appending exactly the closers needed;
//  4. kaptinlin/jsonrepair as a last resort.
//
// If every strategy fails, Parse returns an empty object and ok=false so
// callers building a partial snapshot can fall back to {} without
// propagating an error mid-stream.
func Parse(buf string) (value any, ok bool) {
	trimmed := strings.TrimSpace(buf)
	if trimmed == "" {
		return map[string]any{}, false
	}

	for _, suffix := range closingSuffixes {
		var v any
		if err := json.Unmarshal([]byte(trimmed+suffix), &v); err == nil {
			return v, true
		}
	}

	if closed := closeBrackets(trimmed); closed != trimmed {
		var v any
		if err := json.Unmarshal([]byte(closed), &v); err == nil {
			return v, true
		}
	}

	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
		var v any
		if err := json.Unmarshal([]byte(repaired), &v); err == nil {
			return v, true
		}
	}

	return map[string]any{}, false
}

// ParseFinal decodes the fully-accumulated argument buffer for a completed
// tool call. It applies the same strategies as Parse but falls back to an
// empty object on total failure rather than reporting ok=false, since a
// ToolCallEnd event must always carry a structured value.
func ParseFinal(buf string) any {
	if value, ok := Parse(buf); ok {
		return value
	}
	return map[string]any{}
}

// closeBrackets appends exactly the closers needed to balance buf: any
// unterminated string is closed first, then every open `{`/`[` is closed in
// reverse order. It tracks escape sequences so a backslash-escaped quote
// inside a string does not end the string early.
func closeBrackets(buf string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(buf); i++ {
		c := buf[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var closer strings.Builder
	closer.WriteString(buf)
	if inString {
		closer.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			closer.WriteByte('}')
		case '[':
			closer.WriteByte(']')
		}
	}
	return closer.String()
}
