package chat

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is a single typed entry inside a message: text, thinking,
// image, or tool-call. Each concrete type below serializes with an external
// "type" discriminator (see MarshalContentBlocks / UnmarshalContentBlocks).
type ContentBlock interface {
	blockType() string
}

// TextBlock carries plain assistant or user text. Signature is an opaque,
// provider-specific string that must be replayed verbatim to preserve
// same-model multi-turn continuity; it is empty for user-authored text.
type TextBlock struct {
	Text      string
	Signature string
}

func (TextBlock) blockType() string { return "text" }

// SignatureTag identifies which wire field a ThinkingBlock's reasoning text
// came from. See the priority order in openaicompat's reasoning extraction.
type SignatureTag string

const (
	SignatureTagReasoningDetails SignatureTag = "reasoning_details"
	SignatureTagReasoningContent SignatureTag = "reasoning_content"
	SignatureTagReasoning        SignatureTag = "reasoning"
	SignatureTagReasoningText    SignatureTag = "reasoning_text"
	SignatureTagThinkTag         SignatureTag = "think_tag"
)

// ThinkingBlock carries a model's chain-of-thought reasoning. SignatureTag
// records which source field on the wire produced this block, and Signature
// (when present) is the provider-opaque token required to replay it verbatim
// in a same-model follow-up turn.
type ThinkingBlock struct {
	Text         string
	Signature    string
	SignatureTag SignatureTag
}

func (ThinkingBlock) blockType() string { return "thinking" }

// ImageBlock carries inline image bytes plus their MIME type.
type ImageBlock struct {
	Data     []byte
	MimeType string
}

func (ImageBlock) blockType() string { return "image" }

// ToolCallBlock represents a single function invocation requested by the
// model. Arguments holds the fully parsed, structured argument value (an
// object in the overwhelming majority of cases); ThoughtSignature is an
// opaque per-call signature some providers (Gemini) require to replay a tool
// call in a subsequent turn.
type ToolCallBlock struct {
	ID               ToolCallID
	Name             string
	Arguments        any
	ThoughtSignature string
}

func (ToolCallBlock) blockType() string { return "toolCall" }

// contentBlockEnvelope is the wire shape shared by every content block kind;
// unused fields are simply omitted by omitempty on marshal and ignored on
// unmarshal.
type contentBlockEnvelope struct {
	Type             string          `json:"type"`
	Text             string          `json:"text,omitempty"`
	Signature        string          `json:"signature,omitempty"`
	SignatureTag     SignatureTag    `json:"signatureTag,omitempty"`
	Data             []byte          `json:"data,omitempty"`
	MimeType         string          `json:"mimeType,omitempty"`
	ID               ToolCallID      `json:"id,omitempty"`
	Name             string          `json:"name,omitempty"`
	Arguments        json.RawMessage `json:"arguments,omitempty"`
	ThoughtSignature string          `json:"thoughtSignature,omitempty"`
}

// MarshalContentBlock encodes a single ContentBlock with its external "type"
// discriminator.
func MarshalContentBlock(block ContentBlock) ([]byte, error) {
	env := contentBlockEnvelope{Type: block.blockType()}

	switch b := block.(type) {
	case TextBlock:
		env.Text = b.Text
		env.Signature = b.Signature
	case ThinkingBlock:
		env.Text = b.Text
		env.Signature = b.Signature
		env.SignatureTag = b.SignatureTag
	case ImageBlock:
		env.Data = b.Data
		env.MimeType = b.MimeType
	case ToolCallBlock:
		env.ID = b.ID
		env.Name = b.Name
		env.ThoughtSignature = b.ThoughtSignature
		if b.Arguments != nil {
			raw, err := json.Marshal(b.Arguments)
			if err != nil {
				return nil, fmt.Errorf("chat: marshal tool call arguments: %w", err)
			}
			env.Arguments = raw
		}
	default:
		return nil, fmt.Errorf("chat: unknown content block type %T", block)
	}

	return json.Marshal(env)
}

// UnmarshalContentBlock decodes a single content block from its JSON
// envelope, dispatching on the "type" discriminator.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var env contentBlockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("chat: decode content block: %w", err)
	}

	switch env.Type {
	case "text":
		return TextBlock{Text: env.Text, Signature: env.Signature}, nil
	case "thinking":
		return ThinkingBlock{Text: env.Text, Signature: env.Signature, SignatureTag: env.SignatureTag}, nil
	case "image":
		return ImageBlock{Data: env.Data, MimeType: env.MimeType}, nil
	case "toolCall":
		block := ToolCallBlock{ID: env.ID, Name: env.Name, ThoughtSignature: env.ThoughtSignature}
		if len(env.Arguments) > 0 {
			var args any
			if err := json.Unmarshal(env.Arguments, &args); err != nil {
				return nil, fmt.Errorf("chat: decode tool call arguments: %w", err)
			}
			block.Arguments = args
		}
		return block, nil
	default:
		return nil, fmt.Errorf("chat: unknown content block type %q", env.Type)
	}
}

// MarshalContentBlocks encodes an ordered slice of content blocks as a JSON array.
func MarshalContentBlocks(blocks []ContentBlock) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(blocks))
	for _, b := range blocks {
		encoded, err := MarshalContentBlock(b)
		if err != nil {
			return nil, err
		}
		raws = append(raws, encoded)
	}
	return json.Marshal(raws)
}

// UnmarshalContentBlocks decodes a JSON array of content blocks.
func UnmarshalContentBlocks(data []byte) ([]ContentBlock, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("chat: decode content blocks: %w", err)
	}

	blocks := make([]ContentBlock, 0, len(raws))
	for _, raw := range raws {
		block, err := UnmarshalContentBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// TrimmedEmpty reports whether a thinking block's text is empty once
// surrounding whitespace is trimmed, used by the transformer to decide
// whether a thinking block should be dropped entirely.
func (t ThinkingBlock) TrimmedEmpty() bool {
	return trimSpace(t.Text) == ""
}

// trimSpace avoids importing strings solely for this one call site's sake in
// every caller; kept local so block-level helpers stay self-contained.
func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
