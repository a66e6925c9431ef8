package partialjson

import (
	"reflect"
	"testing"
)

func TestParse_Verbatim(t *testing.T) {
	value, ok := Parse(`{"location":"Tokyo"}`)
	if !ok {
		t.Fatal("expected ok=true for valid JSON")
	}
	want := map[string]any{"location": "Tokyo"}
	if !reflect.DeepEqual(value, want) {
		t.Errorf("got %#v, want %#v", value, want)
	}
}

func TestParse_ClosingSuffix(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want map[string]any
	}{
		{name: "missing closing brace", buf: `{"location":"Tokyo"`, want: map[string]any{"location": "Tokyo"}},
		{name: "mid string value", buf: `{"location":"Toky`, want: map[string]any{"location": "Toky"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, ok := Parse(tc.buf)
			if !ok {
				t.Fatalf("expected ok=true for %q", tc.buf)
			}
			if !reflect.DeepEqual(value, tc.want) {
				t.Errorf("got %#v, want %#v", value, tc.want)
			}
		})
	}
}

func TestParse_BracketCounting(t *testing.T) {
	value, ok := Parse(`{"items":[{"name":"a"},{"name":"b"`)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map[string]any", value)
	}
	items, ok := m["items"].([]any)
	if !ok {
		t.Fatalf("items = %T, want []any", m["items"])
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestParse_EmptyBuffer(t *testing.T) {
	value, ok := Parse("")
	if ok {
		t.Error("expected ok=false for empty buffer")
	}
	if !reflect.DeepEqual(value, map[string]any{}) {
		t.Errorf("got %#v, want empty object", value)
	}
}

func TestParseFinal_FallsBackToEmptyObject(t *testing.T) {
	value := ParseFinal("not json at all {{{")
	if _, ok := value.(map[string]any); !ok {
		t.Errorf("got %T, want map[string]any fallback", value)
	}
}

func TestParseFinal_CompleteBuffer(t *testing.T) {
	value := ParseFinal(`{"location":"Tokyo"}`)
	want := map[string]any{"location": "Tokyo"}
	if !reflect.DeepEqual(value, want) {
		t.Errorf("got %#v, want %#v", value, want)
	}
}
