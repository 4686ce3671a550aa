package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/paperchat/internal/assistant"
	"github.com/matsen/paperchat/internal/reference"
)

// Constants for output formatting.
const (
	ListTitleMaxLen   = 60 // Used in papers command output
	SearchTitleMaxLen = 70 // Used in search result summaries
	TextWrapWidth     = 72 // Standard text wrap width
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// mustSucceed exits with the response's error if it failed, and otherwise
// returns its payload.
func mustSucceed(resp assistant.Response) any {
	if resp.OK() {
		return resp.Data
	}
	code := exitCodeFor(resp.Code)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
	} else {
		outputJSON(ErrorResponse{Error: resp.Error, Code: resp.Code})
	}
	os.Exit(code)
	return nil
}

// printPapersHuman prints a one-line-per-paper listing.
func printPapersHuman(papers []reference.Paper) {
	if len(papers) == 0 {
		fmt.Println("No papers saved.")
		return
	}
	for _, p := range papers {
		fmt.Printf("%-16s %s\n", p.ID, truncateString(p.Title, ListTitleMaxLen))
		if authors := formatAuthorsShort(p.Authors, 3); authors != "" {
			fmt.Printf("%-16s %s\n", "", authors)
		}
		if len(p.Tags) > 0 {
			fmt.Printf("%-16s [%s]\n", "", strings.Join(p.Tags, ", "))
		}
	}
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range strings.Fields(text) {
		switch {
		case currentLine.Len() == 0:
			currentLine.WriteString(word)
		case currentLine.Len()+1+len(word) <= width:
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		default:
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return strings.Join(lines, "\n"+indent)
}

// formatAuthorsShort formats up to maxCount last names, adding "et al.".
func formatAuthorsShort(authors []reference.Author, maxCount int) string {
	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, a.Last)
	}
	return strings.Join(names, ", ")
}
