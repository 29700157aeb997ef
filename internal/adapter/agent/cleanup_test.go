package agent

import "testing"

func TestCleanStutter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no stutter", "the quick brown fox", "the quick brown fox"},
		{"doubled word", "the the quick fox", "the quick fox"},
		{"tripled word", "the the the quick fox", "the quick fox"},
		{"doubled across tab", "hello\thello world", "hello world"},
		{"doubled contraction suffix", "I'm'm happy", "I'm happy"},
		{"contraction chain", "I'm'm'm done", "I'm done"},
		{"different contraction suffixes kept", "it's've odd", "it's've odd"},
		{"case sensitive", "The the end", "The the end"},
		{"repeat across newline kept", "end\nend", "end\nend"},
		{"repeat across punctuation kept", "done, done", "done, done"},
		{"adjacent substring not a repeat", "the theory", "the theory"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanStutter(tt.in); got != tt.want {
				t.Errorf("CleanStutter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanStutterIdempotent(t *testing.T) {
	// The cleanup runs over the whole transcript after every delta, so a
	// second application must be a no-op.
	inputs := []string{
		"the the quick quick brown fox",
		"I'm'm sure it's it's fine",
		"plain text with no artifacts",
		"mixed: the the case and I'll'll go",
	}
	for _, in := range inputs {
		once := CleanStutter(in)
		twice := CleanStutter(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
