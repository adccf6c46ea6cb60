package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/skridlevsky/gavel/internal/github"
	"github.com/skridlevsky/gavel/internal/projects"
)

const usage = "Usage: projects mdDir"

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	markdownDir := os.Args[1]

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		log.Fatal("GITHUB_TOKEN is required")
	}

	// The handbook repo holds both the onboarding issues and the
	// checklist template they are created from.
	repo := getEnv("ONBOARDING_REPO", "skridlevsky/handbook")
	templateExpr := getEnv("ONBOARDING_TEMPLATE", "main:.github/ISSUE_TEMPLATE/new-project.md")

	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		log.Fatalf("ONBOARDING_REPO must be owner/name, got %q", repo)
	}

	ctx := context.Background()
	client := github.NewClient(token)

	templateText, err := client.FetchFileText(ctx, owner, name, templateExpr)
	if err != nil {
		log.Fatalf("Failed to fetch checklist template: %v", err)
	}
	log.Printf("Template text has %d lines.", len(strings.Split(templateText, "\n")))

	query := fmt.Sprintf("repo:%s type:issue %q is:open", repo, "Project onboarding:")
	items, err := client.SearchIssues(ctx, query)
	if err != nil {
		log.Fatalf("Failed to search onboarding issues: %v", err)
	}
	log.Printf("Found %d onboarding issues.", len(items))

	issues := make([]projects.Issue, 0, len(items))
	for _, item := range items {
		issues = append(issues, projects.Issue{
			Title:  item.Title,
			Number: item.Number,
			URL:    item.URL,
			Body:   item.Body,
		})
	}

	report := projects.BuildReport(templateText, issues)
	if err := projects.Write(report, markdownDir); err != nil {
		log.Fatalf("Failed to write onboarding report: %v", err)
	}
}
