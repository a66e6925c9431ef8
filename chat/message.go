package chat

import (
	"encoding/json"
	"fmt"
)

// Message is a single turn in a conversation: one of UserMessage,
// AssistantMessage, or ToolResultMessage. Concrete types serialize with an
// external "role" discriminator.
type Message interface {
	isMessage()
}

// UserMessage holds content supplied by the human side of a conversation.
// Content may hold a single plain TextBlock with no signature, in which case
// MarshalMessage re-emits it as a bare JSON string rather than an array, so
// the common plain-text case round-trips to the same wire shape it started
// from.
type UserMessage struct {
	Content         []ContentBlock
	TimestampMillis int64
}

func (UserMessage) isMessage() {}

// NewUserText builds a UserMessage out of a single plain-text block.
func NewUserText(text string, timestampMillis int64) UserMessage {
	return UserMessage{
		Content:         []ContentBlock{TextBlock{Text: text}},
		TimestampMillis: timestampMillis,
	}
}

// AssistantMessage holds a model-generated turn: the ordered content blocks
// it produced plus bookkeeping about which model produced them, how the
// generation finished, and what it cost.
type AssistantMessage struct {
	Content         []ContentBlock
	Provider        string
	ModelID         string
	API             string
	Usage           Usage
	StopReason      StopReason
	ErrorMessage    string
	TimestampMillis int64
}

func (AssistantMessage) isMessage() {}

// Clone returns a copy with its own Content slice, so a producer task can
// replace or append blocks on the original (see chatstream.Pipeline) without
// affecting the copy. The blocks themselves are copied by value: maps and
// byte slices inside them (tool-call Arguments, image Data) stay shared.
func (m AssistantMessage) Clone() AssistantMessage {
	clone := m
	clone.Content = make([]ContentBlock, len(m.Content))
	copy(clone.Content, m.Content)
	return clone
}

// ToolResultMessage reports the outcome of a single tool invocation back to
// the model that requested it.
type ToolResultMessage struct {
	ToolCallID      ToolCallID
	ToolName        string
	Content         []ContentBlock
	Details         json.RawMessage
	IsError         bool
	TimestampMillis int64
}

func (ToolResultMessage) isMessage() {}

// NewErrorToolResult builds a synthetic tool-result message reporting that no
// result was ever produced for toolCallID; used by the transformer's orphan
// repair pass.
func NewErrorToolResult(toolCallID ToolCallID, toolName string, timestampMillis int64) ToolResultMessage {
	return ToolResultMessage{
		ToolCallID:      toolCallID,
		ToolName:        toolName,
		Content:         []ContentBlock{TextBlock{Text: "No result provided"}},
		IsError:         true,
		TimestampMillis: timestampMillis,
	}
}

type messageEnvelope struct {
	Role            string          `json:"role"`
	Content         json.RawMessage `json:"content,omitempty"`
	TimestampMillis int64           `json:"timestampMillis,omitempty"`

	// Assistant-only fields.
	Provider     string `json:"provider,omitempty"`
	ModelID      string `json:"modelId,omitempty"`
	API          string `json:"api,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
	StopReason   StopReason `json:"stopReason,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// ToolResult-only fields.
	ToolCallID ToolCallID      `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// MarshalMessage encodes a single Message with its external "role"
// discriminator.
func MarshalMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case UserMessage:
		content, err := marshalUserContent(m.Content)
		if err != nil {
			return nil, err
		}
		env := messageEnvelope{Role: "user", Content: content, TimestampMillis: m.TimestampMillis}
		return json.Marshal(env)

	case AssistantMessage:
		content, err := MarshalContentBlocks(m.Content)
		if err != nil {
			return nil, err
		}
		env := messageEnvelope{
			Role:            "assistant",
			Content:         content,
			TimestampMillis: m.TimestampMillis,
			Provider:        m.Provider,
			ModelID:         m.ModelID,
			API:             m.API,
			Usage:           &m.Usage,
			StopReason:      m.StopReason,
			ErrorMessage:    m.ErrorMessage,
		}
		return json.Marshal(env)

	case ToolResultMessage:
		content, err := MarshalContentBlocks(m.Content)
		if err != nil {
			return nil, err
		}
		env := messageEnvelope{
			Role:            "toolResult",
			Content:         content,
			TimestampMillis: m.TimestampMillis,
			ToolCallID:      m.ToolCallID,
			ToolName:        m.ToolName,
			Details:         m.Details,
			IsError:         m.IsError,
		}
		return json.Marshal(env)

	default:
		return nil, fmt.Errorf("chat: unknown message type %T", msg)
	}
}

// marshalUserContent re-emits a single signature-less text block as a bare
// JSON string, matching the wire shape a plain-text user turn started from;
// any other shape is emitted as a content-block array.
func marshalUserContent(blocks []ContentBlock) (json.RawMessage, error) {
	if len(blocks) == 1 {
		if text, ok := blocks[0].(TextBlock); ok && text.Signature == "" {
			raw, err := json.Marshal(text.Text)
			if err != nil {
				return nil, fmt.Errorf("chat: marshal user text: %w", err)
			}
			return raw, nil
		}
	}
	return MarshalContentBlocks(blocks)
}

// UnmarshalMessage decodes a single message from its JSON envelope,
// dispatching on the "role" discriminator.
func UnmarshalMessage(data []byte) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("chat: decode message: %w", err)
	}

	switch env.Role {
	case "user":
		content, err := unmarshalUserContent(env.Content)
		if err != nil {
			return nil, err
		}
		return UserMessage{Content: content, TimestampMillis: env.TimestampMillis}, nil

	case "assistant":
		content, err := UnmarshalContentBlocks(env.Content)
		if err != nil {
			return nil, err
		}
		msg := AssistantMessage{
			Content:         content,
			Provider:        env.Provider,
			ModelID:         env.ModelID,
			API:             env.API,
			StopReason:      env.StopReason,
			ErrorMessage:    env.ErrorMessage,
			TimestampMillis: env.TimestampMillis,
		}
		if env.Usage != nil {
			msg.Usage = *env.Usage
		}
		return msg, nil

	case "toolResult":
		content, err := UnmarshalContentBlocks(env.Content)
		if err != nil {
			return nil, err
		}
		return ToolResultMessage{
			ToolCallID:      env.ToolCallID,
			ToolName:        env.ToolName,
			Content:         content,
			Details:         env.Details,
			IsError:         env.IsError,
			TimestampMillis: env.TimestampMillis,
		}, nil

	default:
		return nil, fmt.Errorf("chat: unknown message role %q", env.Role)
	}
}

// unmarshalUserContent accepts either a bare JSON string or an array of
// content blocks, unifying both into a []ContentBlock.
func unmarshalUserContent(data json.RawMessage) ([]ContentBlock, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return []ContentBlock{TextBlock{Text: asString}}, nil
	}

	return UnmarshalContentBlocks(data)
}

// Conversation is an ordered sequence of messages with its own JSON
// marshaling so a caller never has to loop over MarshalMessage by hand.
type Conversation []Message

func (c Conversation) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(c))
	for _, m := range c {
		encoded, err := MarshalMessage(m)
		if err != nil {
			return nil, err
		}
		raws = append(raws, encoded)
	}
	return json.Marshal(raws)
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("chat: decode conversation: %w", err)
	}

	messages := make(Conversation, 0, len(raws))
	for _, raw := range raws {
		msg, err := UnmarshalMessage(raw)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	*c = messages
	return nil
}
