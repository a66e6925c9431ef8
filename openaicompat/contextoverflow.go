package openaicompat

import (
	"regexp"
	"strings"
)

// contextOverflowPatterns are the case-insensitive substrings/phrasings that
// different OpenAI-compatible providers use to report that a request's input
// exceeded the model's context window.
var contextOverflowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)prompt is too long`),
	regexp.MustCompile(`(?i)input is too long for requested model`),
	regexp.MustCompile(`(?i)exceeds the context window`),
	regexp.MustCompile(`(?i)input token count.*exceeds the maximum`),
	regexp.MustCompile(`(?i)maximum prompt length is \d+`),
	regexp.MustCompile(`(?i)reduce the length of the messages`),
	regexp.MustCompile(`(?i)maximum context length is \d+ tokens`),
	regexp.MustCompile(`(?i)exceeds the limit of \d+`),
	regexp.MustCompile(`(?i)exceeds the available context size`),
	regexp.MustCompile(`(?i)greater than the context length`),
	regexp.MustCompile(`(?i)context window exceeds limit`),
	regexp.MustCompile(`(?i)context_length_exceeded`),
	regexp.MustCompile(`(?i)too many tokens`),
	regexp.MustCompile(`(?i)token limit exceeded`),
}

// isContextOverflowMessage reports whether msg matches any of the known
// provider phrasings for a context-window overflow.
func isContextOverflowMessage(msg string) bool {
	for _, pattern := range contextOverflowPatterns {
		if pattern.MatchString(msg) {
			return true
		}
	}
	return false
}

// IsContextOverflowStatus reports whether an HTTP error response should be
// classified as a context overflow: either the body matches a known phrasing,
// or the status is one of 400/413/429 with an empty body (providers that
// reject oversized requests without an explanatory message).
func IsContextOverflowStatus(statusCode int, body string) bool {
	if isContextOverflowMessage(body) {
		return true
	}
	if strings.TrimSpace(body) == "" {
		switch statusCode {
		case 400, 413, 429:
			return true
		}
	}
	return false
}
