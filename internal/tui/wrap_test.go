package tui

import "testing"

func TestBuildStyledWordsStates(t *testing.T) {
	words := buildStyledWords("The quick brown fox", 3, map[int]bool{2: true})
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(words))
	}
	if words[0].s != correctStyle.Render("The") {
		t.Fatalf("expected matched style for first word")
	}
	if words[2].s != incorrectStyle.Render("brown") {
		t.Fatalf("expected flagged style for third word")
	}
	if words[3].s != currentWordStyle.Render("fox") {
		t.Fatalf("expected current style for next word")
	}
}

func TestBuildStyledWordsPending(t *testing.T) {
	words := buildStyledWords("one two three", 0, nil)
	if words[0].s != currentWordStyle.Render("one") {
		t.Fatalf("expected current style for first word")
	}
	if words[2].s != pendingStyle.Render("three") {
		t.Fatalf("expected pending style for later words")
	}
}

func TestBuildStyledWordsSkipsNonLetters(t *testing.T) {
	// "—" and "42" are not compared, so "cat" is token 1.
	words := buildStyledWords("dog — 42 cat", 1, map[int]bool{})
	if words[0].s != correctStyle.Render("dog") {
		t.Fatalf("expected matched style for dog")
	}
	if words[1].s != currentWordStyle.Render("—") || words[2].s != currentWordStyle.Render("42") {
		t.Fatalf("expected punctuation to follow the next word")
	}
	if words[3].s != currentWordStyle.Render("cat") {
		t.Fatalf("expected current style for cat")
	}
	if words[1].width != 1 {
		t.Fatalf("unexpected width %d", words[1].width)
	}
}

func TestWrapStyledWords(t *testing.T) {
	words := []styledWord{{s: "aa", width: 2}, {s: "bbb", width: 3}, {s: "c", width: 1}, {s: "dddddd", width: 6}}
	got := wrapStyledWords(words, 6)
	want := "aa bbb\nc\ndddddd"
	if got != want {
		t.Fatalf("unexpected wrap %q, want %q", got, want)
	}
	if got := wrapStyledWords(words, 0); got != "aa bbb c dddddd" {
		t.Fatalf("unexpected unwrapped %q", got)
	}
}

func TestTail(t *testing.T) {
	if got := tail("the quick brown fox", 9); got != "…rown fox" {
		t.Fatalf("unexpected tail %q", got)
	}
	if got := tail("short", 9); got != "short" {
		t.Fatalf("unexpected tail %q", got)
	}
}
