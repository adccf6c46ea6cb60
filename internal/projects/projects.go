// Package projects builds the project-onboarding checklist report: a
// matrix of template checklist items against the open onboarding issues
// that track each incoming project.
package projects

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const titlePrefix = "Project onboarding: "

// Issue is one open onboarding issue.
type Issue struct {
	Title  string
	Number int
	URL    string
	Body   string
}

var (
	checkboxPattern = regexp.MustCompile(`^\s*-\s*\[(.)\]\s*([^(]+).*$`)

	inlineLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	refLinkPattern    = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	footnotePattern   = regexp.MustCompile(`\[\^[^\]]+\]`)
	trailerPattern    = regexp.MustCompile(`\s*--.*$`)
)

// stripMarkdownLinks reduces a checklist line to plain text: link
// labels replace links, footnote marks and "--" trailers are dropped.
func stripMarkdownLinks(text string) string {
	text = inlineLinkPattern.ReplaceAllString(text, "$1")
	text = refLinkPattern.ReplaceAllString(text, "$1")
	text = footnotePattern.ReplaceAllString(text, "")
	return trailerPattern.ReplaceAllString(text, "")
}

func statusMark(checked string) string {
	switch checked {
	case "x":
		return "✅"
	case " ":
		return "_"
	case "-":
		return "N/A"
	default:
		return checked
	}
}

// Report is the rendered onboarding matrix plus the leftovers page
// listing checklist items that no longer match the template.
type Report struct {
	Matrix    string
	Leftovers string
}

// BuildReport crosses the template checklist against each issue's
// checkbox state. Rows where every project is done are dropped; rows
// found in issues but absent from the template land in Leftovers.
func BuildReport(templateText string, issues []Issue) *Report {
	var projectList []string
	projectIssue := make(map[string]string)
	checkboxes := make(map[string]map[string]string)

	for _, issue := range issues {
		project := strings.TrimSpace(strings.TrimPrefix(issue.Title, titlePrefix))
		if project == "" {
			// The search matches on the title prefix alone, so an issue
			// with no project name after it can show up.
			continue
		}
		projectList = append(projectList, project)
		projectIssue[project] = fmt.Sprintf("[%s, #%d](%s)", project, issue.Number, issue.URL)

		for _, line := range strings.Split(issue.Body, "\n") {
			match := checkboxPattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			item := stripMarkdownLinks(strings.TrimSpace(match[2]))
			if checkboxes[item] == nil {
				checkboxes[item] = make(map[string]string)
			}
			checkboxes[item][project] = statusMark(match[1])
		}
	}
	sort.Strings(projectList)

	// One-letter column headings, disambiguated by footnote number.
	headings := make([]string, len(projectList))
	for i, project := range projectList {
		headings[i] = fmt.Sprintf("%s[^%d]", project[:1], i+1)
	}
	sort.Strings(headings)

	var report []string
	report = append(report,
		"# Project Onboarding Checklist Report",
		"",
		"Details and instructions are in project-specific issues (see footnotes)",
		"",
		fmt.Sprintf("| Item | %s |", strings.Join(headings, " | ")),
		fmt.Sprintf("|-----| %s |", strings.Join(repeat("-----", len(projectList)), "|")),
	)

	var templateItems []string
	for _, line := range strings.Split(templateText, "\n") {
		match := checkboxPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		item := stripMarkdownLinks(strings.TrimSpace(match[2]))
		templateItems = append(templateItems, item)

		status := checkboxes[item]
		delete(checkboxes, item)
		if status == nil {
			continue
		}

		row := []string{item}
		for _, project := range projectList {
			mark := status[project]
			if mark == "" {
				mark = "_"
			}
			row = append(row, mark)
		}
		rowString := strings.Join(row, " | ")
		if strings.Contains(rowString, "_") {
			report = append(report, fmt.Sprintf("|%s|", rowString))
		}
	}

	report = append(report, "")
	for i, project := range projectList {
		label := projectIssue[project]
		if label == "" {
			label = project
		}
		report = append(report, fmt.Sprintf("[^%d]: %s", i+1, label))
	}

	return &Report{
		Matrix:    strings.Join(report, "\n") + "\n",
		Leftovers: formatLeftovers(templateItems, checkboxes),
	}
}

// formatLeftovers lists the template's valid items and dumps the
// checkbox rows that matched none of them.
func formatLeftovers(templateItems []string, leftovers map[string]map[string]string) string {
	var sb strings.Builder
	sb.WriteString("# Misaligned checklist items\n\nValid items:\n\n")
	for _, item := range templateItems {
		fmt.Fprintf(&sb, "- %s\n", item)
	}
	dump, err := json.MarshalIndent(leftovers, "", "  ")
	if err != nil {
		dump = []byte("{}")
	}
	fmt.Fprintf(&sb, "\n```json\n%s\n```\n", dump)
	return sb.String()
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// Write stores the report pages under markdownDir.
func Write(report *Report, markdownDir string) error {
	if err := os.MkdirAll(markdownDir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare directory %s: %w", markdownDir, err)
	}
	matrixPath := filepath.Join(markdownDir, "new-projects.md")
	if err := os.WriteFile(matrixPath, []byte(report.Matrix), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", matrixPath, err)
	}
	leftoversPath := filepath.Join(markdownDir, "new-projects-leftovers.md")
	if err := os.WriteFile(leftoversPath, []byte(report.Leftovers), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", leftoversPath, err)
	}
	slog.Info("Wrote onboarding report", "matrix", matrixPath, "leftovers", leftoversPath)
	return nil
}
