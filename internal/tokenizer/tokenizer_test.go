package tokenizer

import "testing"

func TestTokenizeDeterministic(t *testing.T) {
	s := "validateEmail"
	a := Tokenize(s)
	b := Tokenize(s)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic token count: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic tokens: %v vs %v", a, b)
		}
	}
}

func TestTokenizeLowercase(t *testing.T) {
	for _, tok := range Tokenize("HTMLParser getUserById") {
		for _, r := range tok {
			if r >= 'A' && r <= 'Z' {
				t.Fatalf("token %q is not lowercase", tok)
			}
		}
	}
}

func TestTokenizeCases(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hello, World! This is a test.", []string{"hello", "world", "this", "is", "test"}},
		{"validateEmail", []string{"validate", "email"}},
		{"HTMLParser", []string{"html", "parser"}},
		{"getUserById", []string{"get", "user", "by", "id"}},
	}
	for _, c := range cases {
		got := Tokenize(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}

// TestTokenizeShortWordWhitelist exercises the two-character floor rather
// than the whitelist itself: "ok"/"id"/"io" already satisfy len(lower) >= 2,
// so they survive on length alone. "a" is one character short and is the
// only one dropped.
func TestTokenizeShortWordWhitelist(t *testing.T) {
	got := Tokenize("a an ok id on io")
	want := []string{"an", "ok", "id", "on", "io"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
