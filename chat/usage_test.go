package chat

import "testing"

func TestUsage_Add(t *testing.T) {
	a := Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7, Cost: Cost{InputCost: 0.01, Total: 0.01}}
	b := Usage{InputTokens: 3, OutputTokens: 1, TotalTokens: 4, Cost: Cost{InputCost: 0.02, Total: 0.02}}

	got := a.Add(b)

	if got.InputTokens != 8 || got.OutputTokens != 3 || got.TotalTokens != 11 {
		t.Errorf("Add() = %+v, want input=8 output=3 total=11", got)
	}
	if got.Cost.Total != 0.03 {
		t.Errorf("Add().Cost.Total = %v, want 0.03", got.Cost.Total)
	}
}

func TestUsage_ExceedsContextWindow(t *testing.T) {
	tests := []struct {
		name          string
		usage         Usage
		contextWindow int
		want          bool
	}{
		{
			name:          "silent overflow",
			usage:         Usage{InputTokens: 220000, CacheReadTokens: 0},
			contextWindow: 200000,
			want:          true,
		},
		{
			name:          "within window",
			usage:         Usage{InputTokens: 100, CacheReadTokens: 50},
			contextWindow: 200000,
			want:          false,
		},
		{
			name:          "cache read pushes over",
			usage:         Usage{InputTokens: 150000, CacheReadTokens: 60000},
			contextWindow: 200000,
			want:          true,
		},
		{
			name:          "unknown context window never overflows",
			usage:         Usage{InputTokens: 1_000_000},
			contextWindow: 0,
			want:          false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.usage.ExceedsContextWindow(tc.contextWindow); got != tc.want {
				t.Errorf("ExceedsContextWindow(%d) = %v, want %v", tc.contextWindow, got, tc.want)
			}
		})
	}
}
