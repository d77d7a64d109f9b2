package util

import "testing"

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "short string untouched", input: "hello", limit: 10, want: "hello"},
		{name: "exact limit untouched", input: "hello", limit: 5, want: "hello"},
		{name: "long string truncated", input: "hello world", limit: 5, want: "hello..."},
		{name: "zero limit", input: "hello", limit: 0, want: ""},
		{name: "surrounding whitespace trimmed", input: "  hi  ", limit: 10, want: "hi"},
		{name: "multibyte runes counted once", input: "привет мир", limit: 6, want: "привет..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateForLog(tc.input, tc.limit); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
