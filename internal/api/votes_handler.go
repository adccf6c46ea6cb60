package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skridlevsky/gavel/internal/archive"
	"github.com/skridlevsky/gavel/internal/tally"
)

// VotesHandler serves read-only views over the vote record tree.
type VotesHandler struct {
	store        *tally.Store
	cache        *tally.RecordCache
	archive      *archive.Archive
	badgeBaseURL string
}

// NewVotesHandler creates a votes handler
func NewVotesHandler(store *tally.Store, cache *tally.RecordCache, archive *archive.Archive, badgeBaseURL string) *VotesHandler {
	return &VotesHandler{
		store:        store,
		cache:        cache,
		archive:      archive,
		badgeBaseURL: badgeBaseURL,
	}
}

type voteSummary struct {
	RepoName   string `json:"repoName"`
	Number     int    `json:"number"`
	Title      string `json:"title"`
	URL        string `json:"github"`
	VoteType   string `json:"voteType"`
	Group      string `json:"group"`
	GroupSize  int    `json:"groupSize"`
	GroupVotes int    `json:"groupVotes"`
	Progress   string `json:"progress"`
	Closed     bool   `json:"closed"`
	Updated    string `json:"updated"`
}

// List handles GET /api/votes. By default only open votes are
// returned; ?closed=true includes closed ones too.
func (h *VotesHandler) List(w http.ResponseWriter, r *http.Request) {
	includeClosed := r.URL.Query().Get("closed") == "true"

	paths, err := h.store.Walk()
	if err != nil {
		slog.Error("Failed to scan record tree", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read vote records"})
		return
	}

	summaries := make([]voteSummary, 0)
	for _, path := range paths {
		vote, err := h.store.Load(path)
		if err != nil {
			slog.Warn("Skipping unreadable record", "path", path, "error", err)
			continue
		}
		if vote.Closed && !includeClosed {
			continue
		}
		summaries = append(summaries, voteSummary{
			RepoName:   vote.RepoName,
			Number:     vote.Number,
			Title:      vote.Title,
			URL:        vote.GitHub,
			VoteType:   vote.VoteType,
			Group:      vote.Group,
			GroupSize:  vote.GroupSize,
			GroupVotes: vote.GroupVotes,
			Progress:   vote.Progress,
			Closed:     vote.Closed,
			Updated:    vote.Updated,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"votes": summaries,
		"count": len(summaries),
	})
}

// lookup resolves the repo path params to a record, via the cache.
func (h *VotesHandler) lookup(r *http.Request) (*tally.VoteData, string, int, error) {
	repoName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		return nil, repoName, 0, fmt.Errorf("invalid item number")
	}

	if vote, ok := h.cache.Get(repoName, number); ok {
		return vote, repoName, number, nil
	}

	vote, err := h.store.Load(h.store.JSONPath(repoName, number))
	if err != nil {
		return nil, repoName, number, err
	}
	h.cache.Update(vote)
	return vote, repoName, number, nil
}

// Get handles GET /api/votes/{owner}/{repo}/{number}
func (h *VotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	vote, repoName, number, err := h.lookup(r)
	if err != nil {
		slog.Info("Vote not found", "repo", repoName, "number", number, "error", err)
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "vote not found"})
		return
	}
	respondJSON(w, http.StatusOK, vote)
}

// Badge handles GET /api/votes/{owner}/{repo}/{number}/badge and
// redirects to a shields.io-style badge image for the vote's progress.
func (h *VotesHandler) Badge(w http.ResponseWriter, r *http.Request) {
	vote, _, _, err := h.lookup(r)
	if err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "vote not found"})
		return
	}

	message := vote.Progress
	if message == "" {
		message = "unknown"
	}
	color := "yellow"
	switch {
	case vote.Progress == "vote-closed":
		color = "blue"
	case vote.Progress == "vote-quorum":
		color = "brightgreen"
	case strings.HasPrefix(vote.Progress, "progress-"):
		message = strings.TrimPrefix(vote.Progress, "progress-") + "/10"
	}

	badge := fmt.Sprintf("%s/vote-%s-%s", h.badgeBaseURL, url.PathEscape(message), color)
	http.Redirect(w, r, badge, http.StatusFound)
}

// History handles GET /api/votes/{owner}/{repo}/{number}/history
func (h *VotesHandler) History(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item number"})
		return
	}

	snapshots, err := h.archive.History(r.Context(), repoName, number)
	if err != nil {
		slog.Error("Failed to read vote history", "repo", repoName, "number", number, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read vote history"})
		return
	}
	if len(snapshots) == 0 {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no history for vote"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"repoName":  repoName,
		"number":    number,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
