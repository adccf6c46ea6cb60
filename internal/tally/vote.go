package tally

// VoteRecord is a single named participant's action on a vote.
// Dedup logic elsewhere operates on Login; (Login, CreatedAt) is not
// guaranteed unique.
type VoteRecord struct {
	Login     string `json:"login"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
	Reaction  string `json:"reaction"`
}

// VoteCategory groups the reactions that count toward one answer.
// Team holds only records whose reaction maps to one of Reactions;
// TeamTotal <= Total always.
type VoteCategory struct {
	Reactions []string     `json:"reactions"`
	Team      []VoteRecord `json:"team"`
	TeamTotal int          `json:"teamTotal"`
	Total     int          `json:"total"`
}

// ManualCloseComment is the override record used when a vote is closed
// by hand rather than by reaching a tally outcome.
type ManualCloseComment struct {
	Author struct {
		Login string `json:"login"`
		URL   string `json:"url"`
	} `json:"author"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
	Body      string `json:"body"`
}

// VoteData is the canonical tally state for one tracked item.
//
// The first block of fields is the embedded payload written by the vote
// bot; the second block is overlaid from the comment and its parent item
// or computed here. Identity is (RepoName, Number); CommentID can
// change across updates when the bot re-posts its summary comment.
type VoteData struct {
	VoteType            string                   `json:"voteType,omitempty"`
	HasQuorum           bool                     `json:"hasQuorum"`
	Group               string                   `json:"group,omitempty"`
	GroupSize           int                      `json:"groupSize"`
	GroupVotes          int                      `json:"groupVotes"`
	CountedVotes        int                      `json:"countedVotes"`
	DroppedVotes        int                      `json:"droppedVotes"`
	VotingThreshold     ThresholdRule            `json:"votingThreshold,omitempty"`
	Categories          map[string]*VoteCategory `json:"categories,omitempty"`
	Duplicates          []VoteRecord             `json:"duplicates,omitempty"`
	MissingGroupActors  []VoteRecord             `json:"missingGroupActors"`
	ManualCloseComments *ManualCloseComment      `json:"manualCloseComments,omitempty"`

	Title     string        `json:"title,omitempty"`
	IsDone    bool          `json:"isDone,omitempty"`
	Closed    bool          `json:"closed"`
	ClosedAt  string        `json:"closedAt,omitempty"`
	CommentID string        `json:"commentId,omitempty"`
	Date      string        `json:"date,omitempty"`
	GitHub    string        `json:"github,omitempty"`
	Ignored   *VoteCategory `json:"ignored,omitempty"`
	ItemID    string        `json:"itemId,omitempty"`
	Number    int           `json:"number,omitempty"`
	Progress  string        `json:"progress,omitempty"`
	RepoName  string        `json:"repoName,omitempty"`
	Tags      []string      `json:"tags"`
	Updated   string        `json:"updated,omitempty"`
}
