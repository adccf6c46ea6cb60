package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/skridlevsky/gavel/internal/github"
)

// Source is the opaque data source the runner pulls from. The GitHub
// GraphQL client satisfies it; tests use a fixture implementation.
type Source interface {
	// SearchVotes returns every vote-carrying item matching the search
	// string, each with its trailing comments.
	SearchVotes(ctx context.Context, searchQuery string) ([]github.ItemWithComments, error)
	// FetchComment retrieves one comment plus its parent item. A nil
	// item means the comment is orphaned.
	FetchComment(ctx context.Context, commentID string) (*github.Comment, *github.Item, error)
}

// Archiver mirrors persisted records into secondary storage. Optional;
// archive failures never block the on-disk persist path.
type Archiver interface {
	RecordSnapshot(ctx context.Context, vote *VoteData) error
}

// Options are the immutable per-run settings, built once from argv and
// passed in. Nothing in the pipeline reads ambient state.
type Options struct {
	Mode         RefreshMode
	Repositories []string // only these repos are recorded; empty allows all
	BotLogin     string
	OpenLabel    string // search label for recent mode, e.g. "vote/open"
}

// Runner drives one batch run: a search pass over the tracker followed
// by a refresh pass over the on-disk record tree. Single-threaded; each
// record is fully processed (normalize, classify, persist) before the
// next.
type Runner struct {
	source     Source
	store      *Store
	normalizer *Normalizer
	archive    Archiver // may be nil
	opts       Options

	repoFilter map[string]bool
	seen       map[string]bool // comment ids handled this run
}

// NewRunner assembles a batch runner.
func NewRunner(source Source, store *Store, normalizer *Normalizer, archive Archiver, opts Options) *Runner {
	filter := make(map[string]bool, len(opts.Repositories))
	for _, repo := range opts.Repositories {
		filter[repo] = true
	}
	return &Runner{
		source:     source,
		store:      store,
		normalizer: normalizer,
		archive:    archive,
		opts:       opts,
		repoFilter: filter,
		seen:       make(map[string]bool),
	}
}

// Run executes both passes. Data-source failures are fatal to the run;
// per-item payload failures are logged and skipped.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.searchPass(ctx); err != nil {
		return err
	}
	return r.refreshPass(ctx)
}

// searchQuery builds the tracker search string: comments by the vote
// bot, newest first, optionally narrowed to the open-vote label and the
// configured repositories.
func (r *Runner) searchQuery() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "commenter:%s sort:updated-desc", r.opts.BotLogin)
	if r.opts.Mode != ModeAll && r.opts.OpenLabel != "" {
		fmt.Fprintf(&sb, " label:%q", r.opts.OpenLabel)
	}
	for _, repo := range r.opts.Repositories {
		fmt.Fprintf(&sb, " repo:%s", repo)
	}
	return sb.String()
}

// searchPass queries the tracker for vote-carrying items and records
// each one found.
func (r *Runner) searchPass(ctx context.Context) error {
	items, err := r.source.SearchVotes(ctx, r.searchQuery())
	if err != nil {
		return fmt.Errorf("vote search failed: %w", err)
	}
	slog.Info("Found votes in tracker", "count", len(items), "mode", r.opts.Mode)

	for i := range items {
		item := &items[i].Item
		vote, err := r.extractVote(item, items[i].Comments)
		if err != nil {
			// Malformed payload: fatal for this item only.
			slog.Error("Skipping vote with bad payload", "error", err)
			continue
		}
		if vote == nil {
			slog.Info("No vote data found", "repo", item.RepoName, "number", item.Number)
			continue
		}

		if err := r.record(ctx, vote); err != nil {
			return err
		}
	}
	return nil
}

// extractVote tries the item's comments newest-first and returns the
// first one carrying a vote payload.
func (r *Runner) extractVote(item *github.Item, comments []github.Comment) (*VoteData, error) {
	sorted := make([]github.Comment, len(comments))
	copy(sorted, comments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt > sorted[j].UpdatedAt
	})
	for i := range sorted {
		vote, err := r.normalizer.Normalize(item, &sorted[i])
		if err != nil || vote != nil {
			return vote, err
		}
	}
	return nil, nil
}

// refreshPass walks the on-disk tree and re-fetches every record the
// search pass didn't already cover, subject to ShouldRefresh.
func (r *Runner) refreshPass(ctx context.Context) error {
	paths, err := r.store.Walk()
	if err != nil {
		return err
	}
	slog.Info("Scanning recorded votes", "count", len(paths), "mode", r.opts.Mode)

	for _, path := range paths {
		existing, err := r.store.Load(path)
		if err != nil {
			slog.Error("Skipping unreadable record", "path", path, "error", err)
			continue
		}
		if existing.CommentID == "" {
			slog.Warn("Record has no commentId", "path", path)
			continue
		}
		if r.seen[existing.CommentID] {
			continue
		}
		if !r.store.ShouldRefresh(existing, r.opts.Mode) {
			slog.Info("Skipping terminal vote",
				"repo", existing.RepoName,
				"number", existing.Number,
				"comment_id", existing.CommentID,
			)
			continue
		}

		vote, err := r.refreshOne(ctx, existing.CommentID)
		if err != nil {
			var orphaned *OrphanedCommentError
			if errors.As(err, &orphaned) {
				// Item deleted or comment moved: fatal for this record,
				// not for the run.
				slog.Error("Orphaned vote comment", "path", path, "error", err)
				continue
			}
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				slog.Error("Malformed vote payload", "path", path, "error", err)
				continue
			}
			return err
		}
		if vote == nil {
			// The comment no longer carries a payload (edited away or
			// bot identity mismatch): leave the record as recorded.
			slog.Warn("Vote data gone from comment", "path", path, "comment_id", existing.CommentID)
			continue
		}

		if err := r.record(ctx, vote); err != nil {
			return err
		}
	}
	return nil
}

// refreshOne re-derives a record from its current comment state.
func (r *Runner) refreshOne(ctx context.Context, commentID string) (*VoteData, error) {
	comment, item, err := r.source.FetchComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment %s: %w", commentID, err)
	}
	if item == nil {
		return nil, &OrphanedCommentError{CommentID: commentID}
	}
	return r.normalizer.Normalize(item, comment)
}

// record persists one normalized record: derives terminality, writes
// the artifacts, mirrors to the archive, and marks the comment seen.
func (r *Runner) record(ctx context.Context, vote *VoteData) error {
	if len(r.repoFilter) > 0 && !r.repoFilter[vote.RepoName] {
		slog.Info("Skipping repo", "repo", vote.RepoName, "number", vote.Number)
		return nil
	}

	// A vote is terminal once it is closed and a previous run already
	// captured it closed; this refresh is the final one.
	existing := r.store.LoadExisting(vote.RepoName, vote.Number)
	vote.IsDone = vote.Closed && existing != nil && existing.Closed

	if _, _, err := r.store.Persist(vote); err != nil {
		return err
	}
	if r.archive != nil {
		if err := r.archive.RecordSnapshot(ctx, vote); err != nil {
			slog.Error("Failed to archive vote snapshot",
				"repo", vote.RepoName,
				"number", vote.Number,
				"error", err,
			)
		}
	}
	r.seen[vote.CommentID] = true
	return nil
}
