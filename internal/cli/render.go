package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func typeStyle(t core.IssueType) lipgloss.Style {
	switch t {
	case core.IssueError:
		return errorStyle
	case core.IssueWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// issueLocation is "sheet row N" with a 1-based row, or just the sheet.
func issueLocation(issue core.ValidationIssue) string {
	if issue.Sheet == "" {
		return "-"
	}
	loc := string(issue.Sheet)
	if issue.Row >= 0 {
		loc += " row " + strconv.Itoa(issue.Row+1)
	}
	if issue.Column != "" {
		loc += " · " + issue.Column
	}
	return loc
}

// renderIssues writes a titled issue table followed by a summary line.
func renderIssues(w io.Writer, title string, issues []core.ValidationIssue) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(issues) == 0 {
		fmt.Fprintln(w, okStyle.Render("✓ no issues"))
		return
	}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		fix := ""
		if issue.Fixable {
			fix = "yes"
		}
		rows = append(rows, []string{
			string(issue.Type),
			issue.ValidatorName,
			issueLocation(issue),
			issue.Message,
			issue.Suggestion,
			fix,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TYPE", "VALIDATOR", "WHERE", "MESSAGE", "SUGGESTION", "FIX").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(issues) {
				return typeStyle(issues[row].Type).Padding(0, 1)
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, summaryLine(core.Summarize(issues)))
}

// summaryLine reads like "2 errors, 1 warning, 0 infos (1 fixable)".
func summaryLine(s core.Summary) string {
	parts := []string{
		errorStyle.Render(plural(s.Errors, "error")),
		warningStyle.Render(plural(s.Warnings, "warning")),
		infoStyle.Render(plural(s.Infos, "info")),
	}
	line := strings.Join(parts, ", ")
	if s.Fixable > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d fixable)", s.Fixable))
	}
	return line
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
