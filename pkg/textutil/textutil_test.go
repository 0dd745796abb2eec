package textutil

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"rune at cut point", strings.Repeat("a", 199) + "é", 200, strings.Repeat("a", 199)},
		{"rune fits", strings.Repeat("a", 198) + "é", 200, strings.Repeat("a", 198) + "é"},
		{"four byte rune", "ab😀cd", 4, "ab"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate() returned invalid UTF-8: %q", got)
			}
		})
	}
}

func TestTruncateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("valid prefix within the limit", prop.ForAll(
		func(s string, n int) bool {
			got := Truncate(s, n)
			return len(got) <= n && strings.HasPrefix(s, got) && utf8.ValidString(got)
		},
		gen.UnicodeString(unicode.L),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}
