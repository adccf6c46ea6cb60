package tally

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// CategoryEntry is one named category in render order.
type CategoryEntry struct {
	Name     string
	Category *VoteCategory
}

// RenderInput is the bundle handed to the summary template for one
// vote record.
type RenderInput struct {
	Repo             string
	Vote             *VoteData
	ResultBody       string // manual-close body quoted with "> ", or ""
	SortedCategories []CategoryEntry
	Tags             string // comma-joined, quoted, minus vote/closed
}

// BuildRenderInput assembles the template inputs for a normalized
// record: categories sorted by name (nil entries dropped), the
// manual-close comment quoted line by line, and display tags.
func BuildRenderInput(vote *VoteData) *RenderInput {
	var categories []CategoryEntry
	for name, category := range vote.Categories {
		if category == nil {
			continue
		}
		categories = append(categories, CategoryEntry{Name: name, Category: category})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	resultBody := ""
	if vote.ManualCloseComments != nil {
		lines := strings.Split(vote.ManualCloseComments.Body, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		resultBody = strings.Join(lines, "\n")
	}

	var displayTags []string
	for _, tag := range vote.Tags {
		if tag == "vote" || tag == "closed" {
			continue
		}
		displayTags = append(displayTags, fmt.Sprintf("%q", tag))
	}

	return &RenderInput{
		Repo:             vote.RepoName,
		Vote:             vote,
		ResultBody:       resultBody,
		SortedCategories: categories,
		Tags:             strings.Join(displayTags, ", "),
	}
}

// IndexEntry is one open vote in the rendered index.
type IndexEntry struct {
	Vote *VoteData
	Path string // summary path relative to the index file
}

// Renderer renders vote summaries and the open-vote index from the
// embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	templates, err := template.New("tally").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// RenderResult renders the human-readable summary for one record.
func (r *Renderer) RenderResult(in *RenderInput) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "result.md.tmpl", in); err != nil {
		return nil, fmt.Errorf("failed to render vote summary: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderIndex renders the open-vote index.
func (r *Renderer) RenderIndex(entries []IndexEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "index.md.tmpl", entries); err != nil {
		return nil, fmt.Errorf("failed to render vote index: %w", err)
	}
	return buf.Bytes(), nil
}
