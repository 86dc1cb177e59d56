package compare

import (
	"regexp"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"", "hello", 5},
		{"hello", "", 5},
		{"kitten", "sitting", 3},
		{"color", "colour", 1},
		{"cat", "dog", 3},
		{"flaw", "lawn", 2},
		{"naïve", "naive", 1},
	}
	for _, tc := range cases {
		if got := Levenshtein(tc.a, tc.b); got != tc.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLevenshteinSymmetric(t *testing.T) {
	words := []string{"", "a", "read", "reed", "rowed", "aloud", "allowed", "quick", "quack"}
	for _, a := range words {
		if d := Levenshtein(a, a); d != 0 {
			t.Fatalf("Levenshtein(%q, %q) = %d, want 0", a, a, d)
		}
		for _, b := range words {
			if Levenshtein(a, b) != Levenshtein(b, a) {
				t.Fatalf("Levenshtein not symmetric for %q, %q", a, b)
			}
		}
	}
}

func TestFuzzyEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"", "", true},
		{"cat", "", false},
		{"", "cat", false},
		{"color", "colour", true},
		{"cat", "dog", false},
		{"The", "the", true},
		{"quick", "quack", true},
		{"fox", "fax", true},
		{"two", "three", false},
	}
	for _, tc := range cases {
		if got := FuzzyEqual(tc.a, tc.b, DefaultTolerance); got != tc.want {
			t.Fatalf("FuzzyEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFuzzyEqualTolerance(t *testing.T) {
	if FuzzyEqual("fox", "fax", 0.2) {
		t.Fatalf("expected fox/fax to differ at tolerance 0.2")
	}
	if !FuzzyEqual("cat", "dog", 1.0) {
		t.Fatalf("expected any pair to match at tolerance 1.0")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  Hello, world!  It's 42 degrees —   café\tnaïve\n")
	want := []string{"Hello", "world", "Its", "degrees", "caf", "nave"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// Letterless words are dropped after stripping rather than kept as empty
// tokens, so a dash or a number between words does not shift positions.
// Filtering before stripping would keep them as empty tokens; do not.
func TestPunctuationOnlyWordsDoNotShiftPositions(t *testing.T) {
	expected := "well — 42 then"
	if got := Tokenize(expected); len(got) != 2 || got[0] != "well" || got[1] != "then" {
		t.Fatalf("unexpected tokens %q", got)
	}
	if mis := Analyze("well then", expected, DefaultTolerance); len(mis) != 0 {
		t.Fatalf("expected no mismatches, got %+v", mis)
	}
}

func TestTokenizeOnlyLetters(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Za-z]+$`)
	inputs := []string{
		"",
		"   ",
		"1 2 3 -- ...",
		"Mr. O'Neil's 3rd-floor flat (№ 7)",
		"日本語 text ünïcödé",
	}
	for _, in := range inputs {
		for _, tok := range Tokenize(in) {
			if !pattern.MatchString(tok) {
				t.Fatalf("token %q from %q is not ASCII letters only", tok, in)
			}
		}
	}
}

func TestAnalyzeNoisyButClose(t *testing.T) {
	got := Analyze("The quack brown fax", "The quick brown fox", DefaultTolerance)
	if len(got) != 0 {
		t.Fatalf("expected no mismatches, got %+v", got)
	}
}

func TestAnalyzeDrift(t *testing.T) {
	res := Compare("one three", "one two three", DefaultTolerance)
	if res.Compared != 2 {
		t.Fatalf("expected 2 compared positions, got %d", res.Compared)
	}
	if len(res.Mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %+v", res.Mismatches)
	}
	if res.Mismatches[0].Expected != "two" || res.Mismatches[0].Observed != "three" {
		t.Fatalf("unexpected mismatch: %+v", res.Mismatches[0])
	}
	if len(res.Positions) != 1 || res.Positions[0] != 1 {
		t.Fatalf("unexpected positions: %v", res.Positions)
	}
}

func TestAnalyzeBoundedByShorterText(t *testing.T) {
	expected := "alpha beta gamma delta"
	observed := "zzzzz yyyy xxxxx wwwww vvvvv uuuuu"
	res := Compare(observed, expected, DefaultTolerance)
	if len(res.Mismatches) > min(res.ExpectedTokens, res.ObservedTokens) {
		t.Fatalf("mismatches exceed overlapping positions: %d", len(res.Mismatches))
	}
	if len(res.Mismatches) != 4 {
		t.Fatalf("expected 4 mismatches, got %d", len(res.Mismatches))
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	for _, pair := range [][2]string{{"", ""}, {"hello", ""}, {"", "hello"}} {
		got := Analyze(pair[0], pair[1], DefaultTolerance)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil mismatches for %q/%q, got %#v", pair[0], pair[1], got)
		}
	}
}

func TestSoundsAlike(t *testing.T) {
	if !SoundsAlike("their", "there") {
		t.Fatalf("expected their/there to sound alike")
	}
	if !SoundsAlike("Knight", "night") {
		t.Fatalf("expected knight/night to sound alike")
	}
	if SoundsAlike("cat", "dog") {
		t.Fatalf("expected cat/dog to sound different")
	}
	if SoundsAlike("", "dog") {
		t.Fatalf("expected empty token to never sound alike")
	}
}
