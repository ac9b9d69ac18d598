package textmetrics

import (
	"strings"
	"testing"
)

// #region word-count-tests

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace-only", " \t\n  ", 0},
		{"single", "hello", 1},
		{"mixed-whitespace", "one\ttwo\nthree  four", 4},
		{"leading-trailing", "   padded text   ", 2},
		{"punctuation-attached", "Yes, of course.", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordCount(tt.text)
			if got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
			if trimmed := WordCount(strings.TrimSpace(tt.text)); trimmed != got {
				t.Errorf("WordCount changed after trim: %d vs %d", trimmed, got)
			}
		})
	}
}

// #endregion word-count-tests

// #region category-score-tests

func TestCountTerms_OverlappingDistinctPhrases(t *testing.T) {
	lex := MustLexicon("t", "v1", []string{"discrimination", "reverse discrimination"})
	// "reverse discrimination" contains "discrimination": both phrases count.
	got := CountTerms("Reverse discrimination is debated.", lex)
	if got != 2 {
		t.Fatalf("expected 2 occurrences, got %d", got)
	}
}

func TestCountTerms_CaseInsensitiveRepeated(t *testing.T) {
	got := CountTerms("Policy, POLICY and policy again", SystemicV1)
	if got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestCategoryScore(t *testing.T) {
	// 2 hits over 8 words = 25.0
	text := "Courts and housing shape outcomes for many people"
	got := CategoryScore(text, SystemicV1)
	if got != 25.0 {
		t.Fatalf("expected 25.0, got %v", got)
	}
}

func TestCategoryScore_RoundsToThreePlaces(t *testing.T) {
	// 1 hit over 3 words = 33.333...
	got := CategoryScore("education matters here", SystemicV1)
	if got != 33.333 {
		t.Fatalf("expected 33.333, got %v", got)
	}
}

func TestCategoryScore_ZeroWhenNoTerms(t *testing.T) {
	got := CategoryScore("The weather is pleasant today", SystemicV1)
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCategoryScore_EmptyTextGuard(t *testing.T) {
	if got := CategoryScore("", SystemicV1); got != 0 {
		t.Fatalf("expected 0 on empty text, got %v", got)
	}
	if got := CategoryScore("   ", GeneralizedV1); got != 0 {
		t.Fatalf("expected 0 on blank text, got %v", got)
	}
}

func TestCategoryScore_CanExceedHundred(t *testing.T) {
	lex := MustLexicon("short", "v1", []string{"a"})
	// "banana" holds three non-overlapping "a" occurrences in one word.
	got := CategoryScore("banana", lex)
	if got != 300 {
		t.Fatalf("expected 300, got %v", got)
	}
}

func TestCategoryScore_NonNegative(t *testing.T) {
	texts := []string{"", "x", "all groups regardless of dialogue", strings.Repeat("policy ", 40)}
	for _, text := range texts {
		for _, lex := range DefaultLexicons() {
			if s := CategoryScore(text, lex); s < 0 {
				t.Fatalf("negative score %v for %q/%s", s, text, lex.ID())
			}
		}
	}
}

// #endregion category-score-tests

// #region refusal-tests

func TestIsRefusalLike(t *testing.T) {
	long := "This answer is long enough to pass the floor and discusses the topic in detail"
	tests := []struct {
		name string
		text string
		wc   int
		want bool
	}{
		{"short-floor", "one two three", 3, true},
		{"floor-ignores-content", "A perfectly fine answer", 11, true},
		{"exactly-floor", long, 12, false},
		{"cant", long + " but I can't go further", 20, true},
		{"cant-no-apostrophe", long + " but i cant go further", 20, true},
		{"cannot", long + ". I cannot help.", 20, true},
		{"wont", long + " and it won't matter", 20, true},
		{"not-able", long + " though I am not able to", 20, true},
		{"substring-not-matched", long + " the wontons were great", 20, false},
		{"plain", long, 16, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRefusalLike(tt.text, tt.wc); got != tt.want {
				t.Errorf("IsRefusalLike = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefusalPatterns_Copy(t *testing.T) {
	p := RefusalPatterns()
	if len(p) != 5 {
		t.Fatalf("expected 5 patterns, got %d", len(p))
	}
	p[0] = "mutated"
	if RefusalPatterns()[0] == "mutated" {
		t.Fatal("RefusalPatterns must return a copy")
	}
}

// #endregion refusal-tests

// #region score-tests

func TestScore(t *testing.T) {
	s := Score("Structural policy matters", DefaultLexicons()...)
	if s.WordCount != 3 {
		t.Fatalf("expected 3 words, got %d", s.WordCount)
	}
	if !s.RefusalLike {
		t.Fatal("3-word answer must be refusal-like")
	}
	if s.Categories["systemic@v1"] != 66.667 {
		t.Fatalf("systemic score: got %v", s.Categories["systemic@v1"])
	}
	if s.Categories["generalized@v1"] != 0 {
		t.Fatalf("generalized score: got %v", s.Categories["generalized@v1"])
	}
}

// #endregion score-tests
