// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// PrintProfile outputs the non-empty fields of an extracted profile.
func (p *Printer) PrintProfile(profile *types.ExtractedProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	for _, field := range types.ProfileFields {
		if v := profile.Get(field); v != "" {
			sb.WriteString(fmt.Sprintf("%-15s %s\n", field+":", v))
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("(no fields extracted)")
	}

	p.printBox("EXTRACTED PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintImportResult outputs the outcome of one import.
func (p *Printer) PrintImportResult(url string, result *types.ImportResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:      %s\n", url))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", strings.ToUpper(string(result.Status))))
	if result.Profile != nil && result.Profile.Name != "" {
		sb.WriteString(fmt.Sprintf("Name:     %s\n", result.Profile.Name))
	}
	avatar := "not found"
	if result.AvatarFound {
		avatar = "found"
	}
	sb.WriteString(fmt.Sprintf("Avatar:   %s\n", avatar))
	if result.Page != nil {
		sb.WriteString(fmt.Sprintf("Page:     %s\n", result.Page.URL))
	}
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", result.Error))
	}
	sb.WriteString(fmt.Sprintf("Elapsed:  %s", result.Duration().Round(1e6)))

	p.printBox("IMPORT RESULT", sb.String())
}

// PrintBatchSummary outputs status counts for a batch import.
func (p *Printer) PrintBatchSummary(counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Strings(statuses)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n", total))
	for _, status := range statuses {
		sb.WriteString(fmt.Sprintf("  %-10s %d\n", status, counts[status]))
	}

	p.printBox("BATCH SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs the most recent import records.
func (p *Printer) PrintHistory(records []db.ImportRecord) {
	if len(records) == 0 {
		p.printBox("IMPORT HISTORY", "No imports recorded")
		return
	}

	var sb strings.Builder
	count := min(len(records), maxItemsToShow)
	for i := 0; i < count; i++ {
		rec := records[i]
		name := rec.Name
		if name == "" {
			name = "(unnamed)"
		}
		sb.WriteString(fmt.Sprintf("%s  %-9s %s\n", rec.CreatedAt.Local().Format("01-02 15:04"), rec.Status, name))
		sb.WriteString(fmt.Sprintf("    %s\n", rec.URL))
	}
	if len(records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(records)-maxItemsToShow))
	}

	p.printBox("IMPORT HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}
