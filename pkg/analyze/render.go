package analyze

import (
	"fmt"
	"strings"
)

// Render formats the report for terminal display.
func (r *Report) Render() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Repository: %s\n", r.Path))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	sb.WriteString("Languages (by lines of code):\n")
	if len(r.Languages) == 0 {
		sb.WriteString("  No code files detected\n")
	} else {
		for _, stat := range r.Languages {
			sb.WriteString(fmt.Sprintf("  %-20s %7d lines (%5.1f%%)\n",
				stat.Language, stat.Lines, stat.Percent))
		}
	}
	sb.WriteString(fmt.Sprintf("\nTotal files: %d\n", r.TotalFiles))
	sb.WriteString(fmt.Sprintf("Total code files: %d\n", r.TotalCodeFiles))
	sb.WriteString(fmt.Sprintf("Total lines of code: %d\n", r.TotalCodeLines))

	sb.WriteString("\nProject structure:\n")
	if len(r.BuildFiles) == 0 {
		sb.WriteString("  No common build files detected\n")
	} else {
		for _, bf := range r.BuildFiles {
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", bf.Path, bf.Description))
		}
	}

	sb.WriteString(fmt.Sprintf("\nComplexity: %s\n  %s\n", r.Complexity, r.ComplexityNote))

	if len(r.Suggestions) > 0 {
		sb.WriteString("\nSuggested tasks:\n")
		for i, s := range r.Suggestions {
			sb.WriteString(fmt.Sprintf("  %2d. %s\n", i+1, s))
		}
	}

	return sb.String()
}

// Summary is the short form used by the summary-only CLI flag.
func (r *Report) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Repository: %s\n", r.Path))
	sb.WriteString(fmt.Sprintf("Files: %d\n", r.TotalFiles))
	sb.WriteString(fmt.Sprintf("Complexity: %s (%s)\n", r.Complexity, r.ComplexityNote))
	if r.PrimaryLanguage != "" {
		sb.WriteString(fmt.Sprintf("Primary language: %s\n", r.PrimaryLanguage))
	}
	return sb.String()
}
