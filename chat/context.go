package chat

import "encoding/json"

// Tool describes a single function a model may call: its name, a
// human-readable description, and a JSON-schema describing its parameters.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Context is the full input to a single chat completion call: an optional
// system prompt, the conversation so far, and the tools the model may
// invoke.
type Context struct {
	SystemPrompt string
	Messages     Conversation
	Tools        []Tool
}
