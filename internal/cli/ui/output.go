// Package ui renders binctl output for a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// PrintSuccess writes a success line to w.
func PrintSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError writes an error line to w.
func PrintError(w io.Writer, format string, args ...any) {
	errorColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning writes a warning line to w.
func PrintWarning(w io.Writer, format string, args ...any) {
	warningColor.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo writes an informational line to w.
func PrintInfo(w io.Writer, format string, args ...any) {
	infoColor.Fprintf(w, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Field is one labelled value in a summary box.
type Field struct {
	Key   string
	Value string
}

// RenderSummary renders fields as aligned key/value lines in a box.
func RenderSummary(title string, fields []Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}

	var b strings.Builder
	b.WriteString(Styles.Title.Render(title))
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(Styles.Key.Render(fmt.Sprintf("%-*s", width, f.Key)))
		b.WriteString("  ")
		b.WriteString(f.Value)
	}
	return Styles.Box.Render(b.String())
}

// RenderMapping renders the dimension to column mapping as a table.
// Absent dimensions are shown greyed out.
func RenderMapping(m bins.Mapping) string {
	var rows [][]string
	for _, d := range bins.Dimensions() {
		col, ok := m.Column(d)
		if !ok {
			col = "(absent)"
		}
		rows = append(rows, []string{string(d), col})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Styles.Boundary).
		Headers("DIMENSION", "COLUMN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return Styles.Header
			case col == 1 && row >= 0 && row < len(rows) && rows[row][1] == "(absent)":
				return Styles.Absent
			default:
				return Styles.Cell
			}
		})
	return t.String()
}

// RenderCounts renders top value counts per dimension, one table each.
func RenderCounts(breakdown map[bins.Dimension][]bins.ValueCount) string {
	var parts []string
	for _, d := range bins.Dimensions() {
		counts, ok := breakdown[d]
		if !ok {
			continue
		}
		rows := make([][]string, len(counts))
		for i, c := range counts {
			rows[i] = []string{c.Value, fmt.Sprint(c.Count)}
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(Styles.Boundary).
			Headers(strings.ToUpper(string(d)), "ROWS").
			Rows(rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return Styles.Header
				}
				return Styles.Cell
			})
		parts = append(parts, t.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
