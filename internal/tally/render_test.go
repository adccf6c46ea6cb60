package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRenderInputSortsCategories(t *testing.T) {
	vote := testVote()
	vote.Categories = map[string]*VoteCategory{
		"revise":  {Reactions: []string{"👎"}},
		"approve": {Reactions: []string{"👍"}},
		"broken":  nil,
	}

	in := BuildRenderInput(vote)
	require.Len(t, in.SortedCategories, 2)
	assert.Equal(t, "approve", in.SortedCategories[0].Name)
	assert.Equal(t, "revise", in.SortedCategories[1].Name)
}

func TestBuildRenderInputQuotesManualClose(t *testing.T) {
	vote := testVote()
	vote.ManualCloseComments = &ManualCloseComment{Body: "Closing early.\nConsensus reached."}

	in := BuildRenderInput(vote)
	assert.Equal(t, "> Closing early.\n> Consensus reached.", in.ResultBody)
}

func TestBuildRenderInputTags(t *testing.T) {
	vote := testVote()
	vote.Tags = []string{"vote", "vote/open", "area/infra", "closed"}

	in := BuildRenderInput(vote)
	assert.Equal(t, `"vote/open", "area/infra"`, in.Tags)
}

func TestRenderResult(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	vote := testVote()
	vote.Categories = map[string]*VoteCategory{
		"approve": {
			Reactions: []string{"👍"},
			Team: []VoteRecord{
				{Login: "bob", URL: "https://github.com/bob", Reaction: "👍", CreatedAt: "2025-03-01T11:00:00Z"},
			},
			TeamTotal: 1,
			Total:     2,
		},
	}

	out, err := renderer.RenderResult(BuildRenderInput(vote))
	require.NoError(t, err)

	summary := string(out)
	assert.Contains(t, summary, "# Adopt the new charter")
	assert.Contains(t, summary, "## approve (👍)")
	assert.Contains(t, summary, "[bob](https://github.com/bob)")
	assert.Contains(t, summary, "## Waiting on")
	assert.Contains(t, summary, "[alice](https://github.com/alice)")
	assert.Contains(t, summary, "vote-quorum")
}

func TestRenderIndex(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	vote := testVote()
	out, err := renderer.RenderIndex([]IndexEntry{
		{Vote: vote, Path: "skridlevsky/governance/42.md"},
	})
	require.NoError(t, err)

	index := string(out)
	assert.Contains(t, index, "# Open votes")
	assert.Contains(t, index, "[skridlevsky/governance#42: Adopt the new charter](skridlevsky/governance/42.md)")
	assert.Contains(t, index, "waiting on 1")
}
