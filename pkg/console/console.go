package console

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/continuum-labs/govern/pkg/styles"
	"github.com/continuum-labs/govern/pkg/tty"
)

var consoleLog = logger.New("console:console")

// ANSI escape sequences for terminal control
var clearScreenSequence = "\033[2J\033[H" // Clear screen and move cursor to home position

// isTTY checks if stdout is a terminal
func isTTY() bool {
	return tty.IsStdoutTerminal()
}

// applyStyle conditionally applies styling based on TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// ToRelativePath converts an absolute path to a relative path from the current working directory
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}

	wd, err := os.Getwd()
	if err != nil {
		// If we can't get the working directory, return the original path
		return path
	}

	relPath, err := filepath.Rel(wd, path)
	if err != nil {
		// If we can't get a relative path, return the original path
		return path
	}

	return relPath
}

// FormatSuccessMessage formats a success message with styling
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// TableConfig represents configuration for table rendering
type TableConfig struct {
	Headers   []string
	Rows      [][]string
	Title     string
	ShowTotal bool
	TotalRow  []string
}

// RenderTable renders a formatted table using lipgloss/table package
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		consoleLog.Print("No headers provided for table rendering")
		return ""
	}

	consoleLog.Printf("Rendering table: title=%s, columns=%d, rows=%d", config.Title, len(config.Headers), len(config.Rows))
	var output strings.Builder

	// Title
	if config.Title != "" {
		output.WriteString(applyStyle(styles.TableTitle, config.Title))
		output.WriteString("\n")
	}

	// Build rows including total row if specified
	allRows := config.Rows
	if config.ShowTotal && len(config.TotalRow) > 0 {
		allRows = append(allRows, config.TotalRow)
	}

	// Determine row count for styling purposes
	dataRowCount := len(config.Rows)

	// Create style function that applies different styles based on row type
	styleFunc := func(row, col int) lipgloss.Style {
		if !isTTY() {
			return lipgloss.NewStyle()
		}
		if row == table.HeaderRow {
			return styles.TableHeader
		}
		// If we have a total row and this is the last row
		if config.ShowTotal && len(config.TotalRow) > 0 && row == dataRowCount {
			return styles.TableTotal
		}
		return styles.TableCell
	}

	// Create table with lipgloss/table package
	t := table.New().
		Headers(config.Headers...).
		Rows(allRows...).
		Border(styles.NormalBorder).
		BorderStyle(styles.TableBorder).
		StyleFunc(styleFunc)

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// FormatLocationMessage formats a file/directory location message
func FormatLocationMessage(message string) string {
	return applyStyle(styles.Location, "\U0001f4c2 ") + message
}

// FormatCommandMessage formats a command execution message
func FormatCommandMessage(command string) string {
	return applyStyle(styles.Command, "⚡ ") + command
}

// FormatProgressMessage formats a progress/activity message
func FormatProgressMessage(message string) string {
	return applyStyle(styles.Progress, "\U0001f528 ") + message
}

// FormatPromptMessage formats a user prompt message
func FormatPromptMessage(message string) string {
	return applyStyle(styles.Prompt, "❓ ") + message
}

// FormatCountMessage formats a count/numeric status message
func FormatCountMessage(message string) string {
	return applyStyle(styles.Count, "\U0001f4ca ") + message
}

// FormatVerboseMessage formats verbose debugging output
func FormatVerboseMessage(message string) string {
	return applyStyle(styles.Verbose, "\U0001f50d ") + message
}

// FormatListHeader formats a section header for lists
func FormatListHeader(header string) string {
	return applyStyle(styles.ListHeader, header)
}

// FormatListItem formats an item in a list
func FormatListItem(item string) string {
	return applyStyle(styles.ListItem, "  • "+item)
}

// FormatErrorMessage formats a simple error message (for stderr output)
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// FormatErrorWithSuggestions formats an error message with actionable suggestions
func FormatErrorWithSuggestions(message string, suggestions []string) string {
	var output strings.Builder
	output.WriteString(FormatErrorMessage(message))

	if len(suggestions) > 0 {
		output.WriteString("\n\nSuggestions:\n")
		for _, suggestion := range suggestions {
			output.WriteString("  • " + suggestion + "\n")
		}
	}

	return output.String()
}

// RenderTableAsJSON renders a table configuration as JSON
// This converts the table structure to a JSON array of objects
func RenderTableAsJSON(config TableConfig) (string, error) {
	if len(config.Headers) == 0 {
		return "[]", nil
	}

	// Create array of objects, where each object has header names as keys
	var result []map[string]string
	for _, row := range config.Rows {
		obj := make(map[string]string)
		for i, cell := range row {
			if i < len(config.Headers) {
				// Convert header to lowercase with underscores for JSON keys
				key := strings.ToLower(strings.ReplaceAll(config.Headers[i], " ", "_"))
				obj[key] = cell
			}
		}
		result = append(result, obj)
	}

	// Marshal to compact JSON (no indentation)
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal table to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// ClearScreen clears the terminal screen if stdout is a TTY
// Uses ANSI escape codes for cross-platform compatibility
func ClearScreen() {
	if isTTY() {
		fmt.Print(clearScreenSequence)
	}
}

// RenderList renders a simple list with the specified enumerator
// Enumerator options: "bullet", "dash", "asterisk", "arabic", "roman", "alphabet"
// If TTY is not detected, returns plain text without styling
func RenderList(items []string, enumerator string) string {
	if len(items) == 0 {
		return ""
	}

	consoleLog.Printf("Rendering list: enumerator=%s, items=%d", enumerator, len(items))

	// Convert strings to any for lipgloss/list
	listItems := make([]any, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	// Create the list
	l := list.New(listItems...)

	// Set enumerator based on type
	switch enumerator {
	case "bullet":
		l = l.Enumerator(list.Bullet)
	case "dash":
		l = l.Enumerator(list.Dash)
	case "asterisk":
		l = l.Enumerator(list.Asterisk)
	case "arabic":
		l = l.Enumerator(list.Arabic)
	case "roman":
		l = l.Enumerator(list.Roman)
	case "alphabet":
		l = l.Enumerator(list.Alphabet)
	default:
		// Default to bullet
		l = l.Enumerator(list.Bullet)
	}

	// Apply styling if TTY
	if isTTY() {
		l = l.EnumeratorStyle(styles.ListEnumerator).
			ItemStyle(styles.ListItem)
	}

	return l.String()
}

// RenderNestedList renders a hierarchical list where each key has nested items
// If TTY is not detected, returns plain text without styling
func RenderNestedList(sections map[string][]string) string {
	if len(sections) == 0 {
		return ""
	}

	consoleLog.Printf("Rendering nested list: sections=%d", len(sections))

	var result strings.Builder

	// Iterate over sections (order not guaranteed in maps, but that's okay for this use case)
	for sectionTitle, items := range sections {
		// Add section header
		if isTTY() {
			result.WriteString(styles.ListHeader.Render(sectionTitle))
		} else {
			result.WriteString(sectionTitle)
		}
		result.WriteString("\n")

		// Create nested list for items
		if len(items) > 0 {
			listItems := make([]any, len(items))
			for i, item := range items {
				listItems[i] = item
			}

			nestedList := list.New(listItems...).
				Enumerator(list.Bullet)

			// Apply styling if TTY
			if isTTY() {
				nestedList = nestedList.EnumeratorStyle(styles.ListEnumerator).
					ItemStyle(styles.ListItem)
			}

			result.WriteString(nestedList.String())
			result.WriteString("\n")
		}
	}

	return result.String()
}
