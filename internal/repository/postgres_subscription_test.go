package repository

import "testing"

func TestContainsPatternEscapesWildcards(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"souza", `%souza%`},
		{"100%", `%100\%%`},
		{"ana_b", `%ana\_b%`},
		{`a\b`, `%a\\b%`},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.term); got != tt.want {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.term, got, tt.want)
		}
	}
}
