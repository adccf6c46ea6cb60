package tally

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RefreshMode controls how aggressively a run re-fetches known records.
type RefreshMode string

const (
	// ModeAll re-fetches every known record.
	ModeAll RefreshMode = "all"
	// ModeRecent skips records that are already terminal.
	ModeRecent RefreshMode = "recent"
)

// Store persists vote records on disk. Identity for file placement is
// (repoName, number): the raw JSON record lives at
// <jsonRoot>/<repoName>/<number>.json and, when a markdown root is
// configured, the rendered summary mirrors the same key under it.
// Re-running over the same inputs overwrites in place.
type Store struct {
	jsonRoot     string
	markdownRoot string // empty: raw records only
	renderer     *Renderer
}

// NewStore creates a record store. markdownRoot may be empty, in which
// case only the structured records are written.
func NewStore(jsonRoot, markdownRoot string) (*Store, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Store{
		jsonRoot:     jsonRoot,
		markdownRoot: markdownRoot,
		renderer:     renderer,
	}, nil
}

// JSONPath returns the on-disk location of a record's structured form.
func (s *Store) JSONPath(repoName string, number int) string {
	return filepath.Join(s.jsonRoot, repoName, fmt.Sprintf("%d.json", number))
}

// MarkdownPath returns the on-disk location of a record's rendered
// summary, or "" when no markdown root is configured.
func (s *Store) MarkdownPath(repoName string, number int) string {
	if s.markdownRoot == "" {
		return ""
	}
	return filepath.Join(s.markdownRoot, repoName, fmt.Sprintf("%d.md", number))
}

// ShouldRefresh decides whether a record needs re-fetching. Everything
// is re-fetched except terminal (isDone) records under recent mode:
// a closed vote gets exactly one extra fetch to capture its final
// state, then is skipped on subsequent recent runs.
func (s *Store) ShouldRefresh(existing *VoteData, mode RefreshMode) bool {
	if mode == ModeRecent && existing != nil && existing.IsDone {
		return false
	}
	return true
}

// Load reads one structured record from disk.
func (s *Store) Load(path string) (*VoteData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vote record %s: %w", path, err)
	}
	vote := &VoteData{}
	if err := json.Unmarshal(data, vote); err != nil {
		return nil, fmt.Errorf("failed to parse vote record %s: %w", path, err)
	}
	return vote, nil
}

// LoadExisting reads the current on-disk record for (repoName, number),
// returning nil when none exists yet.
func (s *Store) LoadExisting(repoName string, number int) *VoteData {
	vote, err := s.Load(s.JSONPath(repoName, number))
	if err != nil {
		return nil
	}
	return vote
}

// Persist writes the structured record and, when configured, the
// rendered summary. Both writes are overwrites; persisting the same
// logical record twice yields identical artifacts. Directory creation
// is idempotent. Returns the paths written (markdown path empty when
// not configured).
func (s *Store) Persist(vote *VoteData) (jsonPath, markdownPath string, err error) {
	jsonPath = s.JSONPath(vote.RepoName, vote.Number)
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create record dir: %w", err)
	}

	data, err := json.MarshalIndent(vote, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal vote record: %w", err)
	}
	slog.Info("Writing vote record", "path", jsonPath)
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write vote record: %w", err)
	}

	markdownPath = s.MarkdownPath(vote.RepoName, vote.Number)
	if markdownPath == "" {
		return jsonPath, "", nil
	}

	if err := os.MkdirAll(filepath.Dir(markdownPath), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create summary dir: %w", err)
	}
	summary, err := s.renderer.RenderResult(BuildRenderInput(vote))
	if err != nil {
		return "", "", err
	}
	slog.Info("Writing vote summary", "path", markdownPath)
	if err := os.WriteFile(markdownPath, summary, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write vote summary: %w", err)
	}

	return jsonPath, markdownPath, nil
}

// Walk returns every structured record path under the JSON root, in
// walk order. A missing root is not an error, it just means no records
// have been captured yet.
func (s *Store) Walk() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.jsonRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to walk %s: %w", s.jsonRoot, err)
	}
	return paths, nil
}
