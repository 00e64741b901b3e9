package format

import "testing"

func TestEscapeAll(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"dot and bang", "Done. Go!", `Done\. Go\!`},
		{"emphasis escaped", "a *bold* _em_", `a \*bold\* \_em\_`},
		{"brackets and parens", "[link](url)", `\[link\]\(url\)`},
		{"backslash", `a\b`, `a\\b`},
		{"dash and plus", "1-2+3=6", `1\-2\+3\=6`},
		{"unicode untouched", "привет, мир", "привет, мир"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Escape(tc.in, false); got != tc.want {
				t.Fatalf("Escape(%q, false) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEscapePreservePairs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"paired asterisks", "I *really* like it", "I *really* like it"},
		{"odd trailing asterisk", "a*b*c*d", `a*b*c\*d`},
		{"single asterisk", "2*3", `2\*3`},
		{"paired underscores", "_em_ words", "_em_ words"},
		{"odd underscore", "snake_case_name_x", `snake_case_name\_x`},
		{"independent streams", "*b* and _i_", "*b* and _i_"},
		{"base set still escaped", "*x.y*", `*x\.y*`},
		{"no markers", "plain text", "plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Escape(tc.in, true); got != tc.want {
				t.Fatalf("Escape(%q, true) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
