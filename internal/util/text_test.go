package util

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello  world", "hello world"},
		{"  padded\t\ntext  ", "padded text"},
		{"", ""},
		{"single", "single"},
	}
	for _, tc := range cases {
		if got := NormalizeWhitespace(tc.in); got != tc.want {
			t.Fatalf("NormalizeWhitespace(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected no cut, got %q", got)
	}
	if got := Truncate("exactly10!", 10); got != "exactly10!" {
		t.Fatalf("boundary must not cut, got %q", got)
	}
	if got := Truncate("a longer sentence", 8); got != "a longer..." {
		t.Fatalf("expected a cut with ellipsis, got %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("rune-safe cut failed, got %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("n=0 must yield empty, got %q", got)
	}
}
