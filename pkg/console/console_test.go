package console

import (
	"strings"
	"testing"
)

func TestFormatErrorWithSuggestions(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		suggestions []string
		expected    []string
	}{
		{
			name:    "error with suggestions",
			message: "thread 'issue-42-fix-auth' not found",
			suggestions: []string{
				"Run 'govern audit issue-42-fix-auth' to inspect the lineage",
				"Check for typos in the thread id",
			},
			expected: []string{
				"✗",
				"thread 'issue-42-fix-auth' not found",
				"Suggestions:",
				"• Run 'govern audit issue-42-fix-auth' to inspect the lineage",
				"• Check for typos in the thread id",
			},
		},
		{
			name:        "error without suggestions",
			message:     "thread not found",
			suggestions: []string{},
			expected: []string{
				"✗",
				"thread not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := FormatErrorWithSuggestions(tt.message, tt.suggestions)

			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain '%s', but got:\n%s", expected, output)
				}
			}

			if len(tt.suggestions) == 0 && strings.Contains(output, "Suggestions:") {
				t.Errorf("Expected no suggestions section for empty suggestions, got:\n%s", output)
			}
		})
	}
}

func TestFormatSuccessMessage(t *testing.T) {
	output := FormatSuccessMessage("workflow filed")
	if !strings.Contains(output, "workflow filed") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "✓") {
		t.Errorf("Expected output to contain checkmark, got: %s", output)
	}
}

func TestFormatInfoMessage(t *testing.T) {
	output := FormatInfoMessage("resuming thread")
	if !strings.Contains(output, "resuming thread") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "ℹ") {
		t.Errorf("Expected output to contain info icon, got: %s", output)
	}
}

func TestFormatWarningMessage(t *testing.T) {
	output := FormatWarningMessage("credential nearing quota")
	if !strings.Contains(output, "credential nearing quota") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "⚠") {
		t.Errorf("Expected output to contain warning icon, got: %s", output)
	}
}

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name     string
		config   TableConfig
		expected []string
	}{
		{
			name: "simple table",
			config: TableConfig{
				Headers: []string{"Thread", "State", "Round"},
				Rows: [][]string{
					{"issue-1-login", "active", "2"},
					{"lld-62-add-x", "done", "1"},
				},
			},
			expected: []string{
				"Thread",
				"State",
				"Round",
				"issue-1-login",
				"lld-62-add-x",
				"active",
				"done",
			},
		},
		{
			name: "table with title and total",
			config: TableConfig{
				Title:   "Credential Usage",
				Headers: []string{"Credential", "Calls"},
				Rows: [][]string{
					{"A", "5"},
					{"B", "3"},
				},
				ShowTotal: true,
				TotalRow:  []string{"TOTAL", "8"},
			},
			expected: []string{
				"Credential Usage",
				"Credential",
				"Calls",
				"A",
				"B",
				"TOTAL",
				"8",
			},
		},
		{
			name: "empty table",
			config: TableConfig{
				Headers: []string{},
				Rows:    [][]string{},
			},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := RenderTable(tt.config)

			if len(tt.expected) == 0 {
				if output != "" {
					t.Errorf("Expected empty output for empty table config, got: %s", output)
				}
				return
			}

			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain '%s', but got:\n%s", expected, output)
				}
			}
		})
	}
}

func TestFormatLocationMessage(t *testing.T) {
	output := FormatLocationMessage("docs/lineage/active/issue-1-login")
	if !strings.Contains(output, "docs/lineage/active/issue-1-login") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
}

func TestToRelativePath(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedFunc func(string, string) bool
	}{
		{
			name: "relative path unchanged",
			path: "docs/lineage/active/issue-1-login/001-brief.md",
			expectedFunc: func(result, expected string) bool {
				return result == expected
			},
		},
		{
			name: "absolute path converted to relative",
			path: "/tmp/govern-repo/docs/lineage/active/issue-1-login/001-brief.md",
			expectedFunc: func(result, expected string) bool {
				return !strings.HasPrefix(result, "/") && strings.HasSuffix(result, "001-brief.md")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelativePath(tt.path)
			if !tt.expectedFunc(result, tt.path) {
				t.Errorf("ToRelativePath(%s) = %s, but validation failed", tt.path, result)
			}
		})
	}
}

func TestRenderTableAsJSON(t *testing.T) {
	tests := []struct {
		name    string
		config  TableConfig
		wantErr bool
	}{
		{
			name: "simple table",
			config: TableConfig{
				Headers: []string{"Thread", "State"},
				Rows: [][]string{
					{"issue-1-login", "active"},
					{"lld-62-add-x", "done"},
				},
			},
			wantErr: false,
		},
		{
			name: "empty table",
			config: TableConfig{
				Headers: []string{},
				Rows:    [][]string{},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderTableAsJSON(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("RenderTableAsJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if result == "" && len(tt.config.Headers) > 0 {
				t.Error("RenderTableAsJSON() returned empty string for non-empty config")
			}
			if len(tt.config.Headers) == 0 && result != "[]" {
				t.Errorf("RenderTableAsJSON() = %v, want []", result)
			}
		})
	}
}

func TestClearScreen(t *testing.T) {
	t.Run("clear screen does not panic", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("ClearScreen() panicked: %v", r)
			}
		}()
		ClearScreen()
	})
}

func TestRenderList(t *testing.T) {
	tests := []struct {
		name       string
		items      []string
		enumerator string
		expected   []string
	}{
		{
			name:       "bullet list",
			items:      []string{"define worktree scope", "add observability"},
			enumerator: "bullet",
			expected:   []string{"define worktree scope", "add observability"},
		},
		{
			name:       "empty list",
			items:      []string{},
			enumerator: "bullet",
			expected:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := RenderList(tt.items, tt.enumerator)

			if len(tt.expected) == 0 {
				if output != "" {
					t.Errorf("Expected empty output for empty list, got: %s", output)
				}
				return
			}

			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain '%s', but got:\n%s", expected, output)
				}
			}
		})
	}
}

func TestRenderNestedList(t *testing.T) {
	sections := map[string][]string{
		"Blocking":    {"define worktree scope"},
		"Suggestions": {"add a changelog entry"},
	}
	output := RenderNestedList(sections)
	for _, expected := range []string{"Blocking", "define worktree scope", "Suggestions", "add a changelog entry"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected output to contain '%s', but got:\n%s", expected, output)
		}
	}
}
