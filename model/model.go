// Package model defines the read-only descriptor the rest of the module
// treats as an external collaborator: a registry or config layer supplies
// Model values, and nothing in chat, chatstream, openaicompat, or transform
// ever mutates one.
package model

// InputKind identifies a content type a model can accept as input.
type InputKind string

const (
	InputKindText  InputKind = "text"
	InputKindImage InputKind = "image"
)

// CostTable holds the per-bucket dollar price of a model, expressed in USD
// per million tokens. A zero-value bucket means that bucket is not billed
// separately (e.g. a model with no cache-write discount).
type CostTable struct {
	InputCostPerMillion      float64
	OutputCostPerMillion     float64
	CacheReadCostPerMillion  float64
	CacheWriteCostPerMillion float64
}

// costForTokens returns the dollar cost of billing the given token count at
// the given per-million rate.
func costForTokens(tokens int, perMillion float64) float64 {
	return (float64(tokens) / 1_000_000.0) * perMillion
}

// InputCost returns the dollar cost of the given number of input tokens.
func (c CostTable) InputCost(tokens int) float64 { return costForTokens(tokens, c.InputCostPerMillion) }

// OutputCost returns the dollar cost of the given number of output tokens.
func (c CostTable) OutputCost(tokens int) float64 {
	return costForTokens(tokens, c.OutputCostPerMillion)
}

// CacheReadCost returns the dollar cost of the given number of cache-read tokens.
func (c CostTable) CacheReadCost(tokens int) float64 {
	return costForTokens(tokens, c.CacheReadCostPerMillion)
}

// CacheWriteCost returns the dollar cost of the given number of cache-write tokens.
func (c CostTable) CacheWriteCost(tokens int) float64 {
	return costForTokens(tokens, c.CacheWriteCostPerMillion)
}

// CompatOverrides lets a model descriptor force specific ResolvedCompat
// fields regardless of what base-URL/provider detection would otherwise
// infer. Fields left at their zero value (via a nil pointer) defer to
// detection; callers that want to force a field to false still provide a
// pointer to false rather than leaving it nil.
type CompatOverrides struct {
	SupportsStore            *bool
	SupportsDeveloperRole    *bool
	SupportsReasoningEffort  *bool
	SupportsUsageInStreaming *bool
	RequiresToolResultName   *bool
	RequiresThinkingAsText   *bool
	RequiresMistralToolIDs   *bool
}

// Model is the read-only descriptor the core treats as an external
// collaborator. It carries everything the provider engine and transformer
// need to know about a specific (provider, api, model id) triple.
type Model struct {
	ID                string
	Name              string
	Provider          string
	API               string
	BaseURL           string
	ReasoningCapable   bool
	InputKinds        []InputKind
	Cost              CostTable
	ContextWindow     int
	MaxTokens         int
	Headers           map[string]string
	CompatOverrides   *CompatOverrides
}

// SupportsImageInput reports whether this model declares image input
// capability, used to decide whether to skip image blocks when building a
// request.
func (m Model) SupportsImageInput() bool {
	for _, kind := range m.InputKinds {
		if kind == InputKindImage {
			return true
		}
	}
	return false
}
