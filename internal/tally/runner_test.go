package tally

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skridlevsky/gavel/internal/github"
)

type fetchResult struct {
	comment *github.Comment
	item    *github.Item
}

type fakeSource struct {
	searchResults []github.ItemWithComments
	searchErr     error
	fetchResults  map[string]fetchResult
	fetchErr      error

	searchQueries []string
	fetchedIDs    []string
}

func (s *fakeSource) SearchVotes(ctx context.Context, searchQuery string) ([]github.ItemWithComments, error) {
	s.searchQueries = append(s.searchQueries, searchQuery)
	return s.searchResults, s.searchErr
}

func (s *fakeSource) FetchComment(ctx context.Context, commentID string) (*github.Comment, *github.Item, error) {
	s.fetchedIDs = append(s.fetchedIDs, commentID)
	if s.fetchErr != nil {
		return nil, nil, s.fetchErr
	}
	result, ok := s.fetchResults[commentID]
	if !ok {
		return nil, nil, errors.New("no such comment")
	}
	return result.comment, result.item, nil
}

func newTestRunner(t *testing.T, source Source, opts Options) (*Runner, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir(), "")
	require.NoError(t, err)
	if opts.BotLogin == "" {
		opts.BotLogin = testBot
	}
	normalizer := NewNormalizer(NormalizerConfig{BotLogin: opts.BotLogin})
	return NewRunner(source, store, normalizer, nil, opts), store
}

func TestSearchQueryRecent(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeSource{}, Options{
		Mode:         ModeRecent,
		OpenLabel:    "vote/open",
		Repositories: []string{"skridlevsky/governance", "skridlevsky/handbook"},
	})
	assert.Equal(t,
		`commenter:haus-rules-bot[bot] sort:updated-desc label:"vote/open" repo:skridlevsky/governance repo:skridlevsky/handbook`,
		runner.searchQuery(),
	)
}

func TestSearchQueryAllSkipsLabel(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeSource{}, Options{
		Mode:      ModeAll,
		OpenLabel: "vote/open",
	})
	assert.Equal(t, "commenter:haus-rules-bot[bot] sort:updated-desc", runner.searchQuery())
}

func TestRunRecordsSearchResults(t *testing.T) {
	source := &fakeSource{
		searchResults: []github.ItemWithComments{
			{Item: *testItem(), Comments: []github.Comment{*botComment(`{"groupSize": 4}`)}},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	require.NoError(t, runner.Run(context.Background()))

	vote := store.LoadExisting("skridlevsky/governance", 42)
	require.NotNil(t, vote)
	assert.Equal(t, 4, vote.GroupSize)
	assert.Equal(t, "IC_xyz789", vote.CommentID)
}

func TestRunAppliesRepoFilter(t *testing.T) {
	source := &fakeSource{
		searchResults: []github.ItemWithComments{
			{Item: *testItem(), Comments: []github.Comment{*botComment(`{}`)}},
		},
	}
	runner, store := newTestRunner(t, source, Options{
		Mode:         ModeRecent,
		Repositories: []string{"skridlevsky/handbook"},
	})

	require.NoError(t, runner.Run(context.Background()))
	assert.Nil(t, store.LoadExisting("skridlevsky/governance", 42))
}

func TestRunSkipsItemsWithoutPayload(t *testing.T) {
	source := &fakeSource{
		searchResults: []github.ItemWithComments{
			{Item: *testItem(), Comments: []github.Comment{
				{ID: "IC_1", Author: "someone", Body: "no vote here"},
			}},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	require.NoError(t, runner.Run(context.Background()))
	assert.Nil(t, store.LoadExisting("skridlevsky/governance", 42))
}

func TestRunContinuesPastMalformedPayload(t *testing.T) {
	good := github.ItemWithComments{
		Item:     *testItem(),
		Comments: []github.Comment{*botComment(`{"groupSize": 2}`)},
	}
	badItem := *testItem()
	badItem.Number = 43
	bad := github.ItemWithComments{
		Item:     badItem,
		Comments: []github.Comment{*botComment(`{"groupSize":`)},
	}
	source := &fakeSource{searchResults: []github.ItemWithComments{bad, good}}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	require.NoError(t, runner.Run(context.Background()))
	assert.Nil(t, store.LoadExisting("skridlevsky/governance", 43))
	assert.NotNil(t, store.LoadExisting("skridlevsky/governance", 42))
}

func TestRunSearchErrorIsFatal(t *testing.T) {
	source := &fakeSource{searchErr: errors.New("api down")}
	runner, _ := newTestRunner(t, source, Options{Mode: ModeRecent})

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
}

func TestRefreshPassSkipsSeenComments(t *testing.T) {
	source := &fakeSource{
		searchResults: []github.ItemWithComments{
			{Item: *testItem(), Comments: []github.Comment{*botComment(`{}`)}},
		},
	}
	runner, _ := newTestRunner(t, source, Options{Mode: ModeRecent})

	// The search pass records IC_xyz789; the file pass must not
	// re-fetch it.
	require.NoError(t, runner.Run(context.Background()))
	assert.Empty(t, source.fetchedIDs)
}

func TestRefreshPassUpdatesKnownRecords(t *testing.T) {
	item := testItem()
	source := &fakeSource{
		fetchResults: map[string]fetchResult{
			"IC_xyz789": {comment: botComment(`{"groupSize": 6, "groupVotes": 6, "hasQuorum": true}`), item: item},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	stale := testVote()
	stale.GroupVotes = 1
	_, _, err := store.Persist(stale)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"IC_xyz789"}, source.fetchedIDs)

	refreshed := store.LoadExisting("skridlevsky/governance", 42)
	require.NotNil(t, refreshed)
	assert.Equal(t, 6, refreshed.GroupVotes)
	assert.Equal(t, "vote-quorum", refreshed.Progress)
}

func TestRefreshPassDerivesIsDone(t *testing.T) {
	item := testItem()
	item.Closed = true
	item.ClosedAt = "2025-04-01T00:00:00Z"
	source := &fakeSource{
		fetchResults: map[string]fetchResult{
			"IC_xyz789": {comment: botComment(`{}`), item: item},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	// First capture of the closed state: not terminal yet.
	open := testVote()
	_, _, err := store.Persist(open)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))
	first := store.LoadExisting("skridlevsky/governance", 42)
	require.NotNil(t, first)
	assert.True(t, first.Closed)
	assert.False(t, first.IsDone)

	// Second capture sees closed on both sides: terminal.
	runner2, _ := newTestRunner(t, source, Options{Mode: ModeRecent})
	runner2.store = store
	require.NoError(t, runner2.Run(context.Background()))
	second := store.LoadExisting("skridlevsky/governance", 42)
	assert.True(t, second.IsDone)

	// Terminal records are skipped on later recent runs.
	source.fetchedIDs = nil
	runner3, _ := newTestRunner(t, source, Options{Mode: ModeRecent})
	runner3.store = store
	require.NoError(t, runner3.Run(context.Background()))
	assert.Empty(t, source.fetchedIDs)
}

func TestRefreshPassSkipsOrphanedComments(t *testing.T) {
	source := &fakeSource{
		fetchResults: map[string]fetchResult{
			"IC_xyz789": {comment: botComment(`{}`), item: nil},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	stale := testVote()
	_, _, err := store.Persist(stale)
	require.NoError(t, err)

	// Orphaned records are logged and left alone, not fatal.
	require.NoError(t, runner.Run(context.Background()))

	unchanged := store.LoadExisting("skridlevsky/governance", 42)
	require.NotNil(t, unchanged)
	assert.Equal(t, stale.GroupVotes, unchanged.GroupVotes)
}

func TestRefreshPassContinuesPastMalformedPayload(t *testing.T) {
	source := &fakeSource{
		fetchResults: map[string]fetchResult{
			"IC_xyz789": {comment: botComment(`{"groupSize": `), item: testItem()},
		},
	}
	runner, store := newTestRunner(t, source, Options{Mode: ModeRecent})

	stale := testVote()
	_, _, err := store.Persist(stale)
	require.NoError(t, err)

	// A comment edited into a broken payload is logged and left alone,
	// not fatal for the pass.
	require.NoError(t, runner.Run(context.Background()))

	unchanged := store.LoadExisting("skridlevsky/governance", 42)
	require.NotNil(t, unchanged)
	assert.Equal(t, stale.GroupVotes, unchanged.GroupVotes)
}
