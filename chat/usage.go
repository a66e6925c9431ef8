package chat

// Usage tracks token counts for a single assistant turn. All fields are
// non-negative; TotalTokens equals InputTokens+OutputTokens whenever the
// provider does not report a total of its own.
type Usage struct {
	InputTokens      int  `json:"inputTokens"`
	OutputTokens     int  `json:"outputTokens"`
	CacheReadTokens  int  `json:"cacheReadTokens,omitempty"`
	CacheWriteTokens int  `json:"cacheWriteTokens,omitempty"`
	TotalTokens      int  `json:"totalTokens"`
	Cost             Cost `json:"cost"`
}

// Cost holds the dollar cost of a single turn, broken down by token bucket.
type Cost struct {
	InputCost     float64 `json:"inputCost,omitempty"`
	OutputCost    float64 `json:"outputCost,omitempty"`
	CacheReadCost float64 `json:"cacheReadCost,omitempty"`
	CacheWriteCost float64 `json:"cacheWriteCost,omitempty"`
	Total         float64 `json:"total"`
}

// Add returns the sum of u and other, bucket by bucket; u itself is left
// unchanged. Used when a provider reports usage incrementally across several
// chunks.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		Cost: Cost{
			InputCost:      u.Cost.InputCost + other.Cost.InputCost,
			OutputCost:     u.Cost.OutputCost + other.Cost.OutputCost,
			CacheReadCost:  u.Cost.CacheReadCost + other.Cost.CacheReadCost,
			CacheWriteCost: u.Cost.CacheWriteCost + other.Cost.CacheWriteCost,
			Total:          u.Cost.Total + other.Cost.Total,
		},
	}
}

// ExceedsContextWindow reports whether this usage, combined with the
// declared context window of the model that produced it, indicates a silent
// context overflow: a successful-looking completion whose input plus
// cache-read tokens exceed what the model can actually hold.
func (u Usage) ExceedsContextWindow(contextWindow int) bool {
	if contextWindow <= 0 {
		return false
	}
	return u.InputTokens+u.CacheReadTokens > contextWindow
}
