package stringutil

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "add X", "add-x"},
		{"already slug", "worktree-scope", "worktree-scope"},
		{"punctuation", "#62 add X!", "62-add-x"},
		{"mixed case", "Add Observability & Logging", "add-observability-logging"},
		{"leading/trailing junk", "  --brief--  ", "brief"},
		{"empty", "", ""},
		{"only punctuation", "***", ""},
		{"collapses runs", "a---b___c", "a-b-c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRequirementText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normalized", "define worktree scope", "define worktree scope"},
		{"mixed case", "Define Worktree Scope", "define worktree scope"},
		{"extra whitespace", "  define   worktree\tscope  ", "define worktree scope"},
		{"newlines", "add\nobservability", "add observability"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRequirementText(tt.input); got != tt.expected {
				t.Errorf("NormalizeRequirementText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRequirementTextEquivalence(t *testing.T) {
	a := NormalizeRequirementText("Define Worktree Scope")
	b := NormalizeRequirementText("define   worktree scope")
	if a != b {
		t.Errorf("expected equivalent normalization, got %q vs %q", a, b)
	}
}

func BenchmarkSlugify(b *testing.B) {
	s := "#62 Add Observability & Logging to the Draft Pipeline"
	for i := 0; i < b.N; i++ {
		Slugify(s)
	}
}
