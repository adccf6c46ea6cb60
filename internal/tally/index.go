package tally

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BuildIndex scans the record tree under jsonRoot and writes a markdown
// index of the still-open votes to indexFile. Each entry links to the
// vote's rendered summary under markdownRoot, relative to the index
// file's directory.
func BuildIndex(jsonRoot, markdownRoot, indexFile string) error {
	store, err := NewStore(jsonRoot, markdownRoot)
	if err != nil {
		return err
	}
	paths, err := store.Walk()
	if err != nil {
		return err
	}

	indexDir := filepath.Dir(indexFile)
	var entries []IndexEntry
	for _, path := range paths {
		vote, err := store.Load(path)
		if err != nil {
			slog.Error("Skipping unreadable record", "path", path, "error", err)
			continue
		}
		if vote.CommentID == "" || vote.Closed {
			continue
		}
		if vote.MissingGroupActors == nil {
			vote.MissingGroupActors = []VoteRecord{}
		}

		mdPath := store.MarkdownPath(vote.RepoName, vote.Number)
		rel, err := filepath.Rel(indexDir, mdPath)
		if err != nil {
			rel = mdPath
		}
		entries = append(entries, IndexEntry{
			Vote: vote,
			Path: filepath.ToSlash(rel),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Path) < strings.ToLower(entries[j].Path)
	})

	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	content, err := renderer.RenderIndex(entries)
	if err != nil {
		return fmt.Errorf("failed to render index: %w", err)
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", indexDir, err)
	}
	if err := os.WriteFile(indexFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", indexFile, err)
	}
	slog.Info("Wrote vote index", "path", indexFile, "open_votes", len(entries))
	return nil
}
