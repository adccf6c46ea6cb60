// Package reports archives repository health report payloads collected
// by CI, one JSON file per repository per collection date.
package reports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParseReports decodes the CI payload: a JSON object keyed by full
// repository name, each value a report document encoded as a string.
func ParseReports(payload string) (map[string]string, error) {
	if payload == "" {
		payload = "{}"
	}
	var reports map[string]string
	if err := json.Unmarshal([]byte(payload), &reports); err != nil {
		return nil, fmt.Errorf("invalid reports payload: %w", err)
	}
	return reports, nil
}

// Store writes each report to <baseDirectory>/<startDate>/<owner>_<repo>.json
// and returns the created paths. Report values that are not valid JSON
// are rejected before anything is written for them.
func Store(reports map[string]string, startDate, baseDirectory string) ([]string, error) {
	reportDir := filepath.Join(baseDirectory, startDate)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", reportDir, err)
	}

	repos := make([]string, 0, len(reports))
	for repo := range reports {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	var created []string
	for _, repo := range repos {
		reportJSON := reports[repo]
		if !json.Valid([]byte(reportJSON)) {
			return created, fmt.Errorf("report for %s is not valid JSON", repo)
		}

		fileName := strings.Replace(repo, "/", "_", 1) + ".json"
		filePath := filepath.Join(reportDir, fileName)
		if err := os.WriteFile(filePath, []byte(reportJSON), 0o644); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", filePath, err)
		}
		slog.Info("Wrote health report", "repo", repo, "path", filePath)
		created = append(created, filePath)
	}
	return created, nil
}
