package tally

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/skridlevsky/gavel/internal/github"
)

// voteDataMarker delimits the machine-readable payload the vote bot
// embeds in its summary comment. The delimiter convention lives here
// and nowhere else.
var voteDataMarker = regexp.MustCompile(`(?s)<!-- vote::data (.*?)-->`)

const (
	// noiseLabel marks an item as vote-carrying; it is tracker plumbing,
	// not a tag anyone wants rendered.
	noiseLabel = "vote"
	// ignoredCategoryKey is the category the bot uses for reactions that
	// do not count toward any answer.
	ignoredCategoryKey = "ignored"

	apiUserHost = "api.github.com/users"
	webHost     = "github.com"
)

// ParseError reports a malformed embedded vote payload. Fatal for the
// item it belongs to; batch callers log it and move on.
type ParseError struct {
	RepoName string
	Number   int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s#%d: malformed vote payload: %v", e.RepoName, e.Number, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OrphanedCommentError reports a bot comment whose parent issue or
// discussion could not be resolved.
type OrphanedCommentError struct {
	CommentID string
}

func (e *OrphanedCommentError) Error() string {
	return fmt.Sprintf("comment %s has no resolvable parent item", e.CommentID)
}

// NormalizerConfig is the immutable configuration for payload
// normalization, constructed once at process start.
type NormalizerConfig struct {
	// BotLogin identifies the vote bot; comments from anyone else never
	// produce a vote record. Matched by substring, mirroring the
	// tracker's "[bot]" login suffix variance.
	BotLogin string
	// RemoveTags are label names stripped from rendered tags.
	RemoveTags []string
}

// Normalizer turns a bot comment plus its parent item into a canonical
// VoteData record.
type Normalizer struct {
	botLogin   string
	removeTags map[string]bool
}

// NewNormalizer creates a normalizer from its immutable config.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	remove := make(map[string]bool, len(cfg.RemoveTags))
	for _, tag := range cfg.RemoveTags {
		remove[tag] = true
	}
	return &Normalizer{
		botLogin:   cfg.BotLogin,
		removeTags: remove,
	}
}

// Normalize extracts and normalizes the vote payload carried by comment.
//
// A (nil, nil) return means "no vote here": the comment has no embedded
// payload or was not authored by the vote bot. That is the normal state
// of most comments, not an error. A *ParseError means the payload exists
// but is malformed.
func (n *Normalizer) Normalize(item *github.Item, comment *github.Comment) (*VoteData, error) {
	if comment == nil {
		return nil, nil
	}

	match := voteDataMarker.FindStringSubmatch(comment.Body)
	if match == nil || !strings.Contains(comment.Author, n.botLogin) {
		return nil, nil
	}

	vote := &VoteData{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), vote); err != nil {
		return nil, &ParseError{RepoName: item.RepoName, Number: item.Number, Err: err}
	}

	// Identity and metadata overlaid from the comment and its parent.
	vote.CommentID = comment.ID
	vote.GitHub = item.URL
	vote.ItemID = item.ID
	vote.Title = item.Title
	vote.Number = item.Number
	vote.RepoName = item.RepoName
	vote.Date = comment.CreatedAt
	vote.Updated = comment.UpdatedAt
	if vote.Updated == "" {
		vote.Updated = vote.Date
	}

	vote.Tags = n.filterTags(item.Labels)

	vote.Closed = item.Closed
	if item.Closed {
		vote.ClosedAt = item.ClosedAt
		vote.Tags = append(vote.Tags, "closed")
	}

	// Actor URLs arrive in the tracker's user-API form; rewrite to the
	// human-facing host. Already-rewritten URLs are left alone.
	for i := range vote.MissingGroupActors {
		vote.MissingGroupActors[i].URL = strings.Replace(vote.MissingGroupActors[i].URL, apiUserHost, webHost, 1)
	}

	if vote.Categories != nil {
		for _, category := range vote.Categories {
			if category == nil {
				continue
			}
			for i, reaction := range category.Reactions {
				category.Reactions[i] = NormalizeReaction(reaction)
			}
			for i, record := range category.Team {
				category.Team[i].Reaction = NormalizeReaction(record.Reaction)
			}
		}
		if ignored, ok := vote.Categories[ignoredCategoryKey]; ok {
			vote.Ignored = ignored
			delete(vote.Categories, ignoredCategoryKey)
		}
	}

	vote.Progress = Classify(vote).Indicator()

	// Renderers iterate this unconditionally.
	if vote.MissingGroupActors == nil {
		vote.MissingGroupActors = []VoteRecord{}
	}

	return vote, nil
}

func (n *Normalizer) filterTags(labels []github.Label) []string {
	tags := make([]string, 0, len(labels))
	for _, label := range labels {
		if label.Name == noiseLabel || n.removeTags[label.Name] {
			continue
		}
		tags = append(tags, label.Name)
	}
	return tags
}
