package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the GitHub GraphQL API. The tally engine never uses
// this type directly; it consumes the tally.Source interface so the
// tracker stays an opaque data source.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new GraphQL client
func NewClient(token string) *Client {
	return &Client{
		token:    token,
		endpoint: "https://api.github.com/graphql",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphQLRequest represents a GraphQL request
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLResponse represents a GraphQL response
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphQLError represents a GraphQL error
type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// doQuery executes a GraphQL query
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]interface{}) (*graphQLResponse, error) {
	reqBody := graphQLRequest{
		Query:     query,
		Variables: variables,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Gavel-Gov")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github GraphQL error %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql errors: %v", gqlResp.Errors)
	}

	return &gqlResp, nil
}

// Label is an item label name
type Label struct {
	Name string `json:"name"`
}

// Item is an issue, pull request, or discussion that may carry a vote
type Item struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Number   int     `json:"number"`
	Closed   bool    `json:"closed"`
	ClosedAt string  `json:"closedAt"`
	Labels   []Label `json:"labels"`
	RepoName string  `json:"repoName"` // owner/repo
	URL      string  `json:"url"`
	Body     string  `json:"body,omitempty"`
}

// Comment is one comment on an item. Timestamps stay in their wire
// (RFC 3339) string form so persisted records are byte-stable.
type Comment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Author    string `json:"author"` // login
	URL       string `json:"url"`
}

// ItemWithComments pairs an item with its trailing comments
type ItemWithComments struct {
	Item     Item
	Comments []Comment
}

// itemFields is the shared GraphQL selection for vote-carrying items
const itemFields = `
	id
	title
	number
	closed
	closedAt
	url
	labels(first: 50) {
		nodes {
			name
		}
	}
	repository {
		nameWithOwner
	}
	comments(last: 50) {
		nodes {
			id
			body
			createdAt
			updatedAt
			url
			author {
				login
			}
		}
	}
`

// wireItem mirrors the GraphQL item selection above
type wireItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Number   int    `json:"number"`
	Closed   bool   `json:"closed"`
	ClosedAt string `json:"closedAt"`
	URL      string `json:"url"`
	Labels   struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	Comments struct {
		Nodes []wireComment `json:"nodes"`
	} `json:"comments"`
	Body string `json:"body"`
}

type wireComment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	URL       string `json:"url"`
	Author    struct {
		Login string `json:"login"`
	} `json:"author"`
}

func (w *wireItem) toItem() Item {
	return Item{
		ID:       w.ID,
		Title:    w.Title,
		Number:   w.Number,
		Closed:   w.Closed,
		ClosedAt: w.ClosedAt,
		Labels:   w.Labels.Nodes,
		RepoName: w.Repository.NameWithOwner,
		URL:      w.URL,
		Body:     w.Body,
	}
}

func (w *wireComment) toComment() Comment {
	return Comment{
		ID:        w.ID,
		Body:      w.Body,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		URL:       w.URL,
		Author:    w.Author.Login,
	}
}

// SearchVotes runs one search across issues/PRs and discussions and
// returns every matched item with its trailing comments. The caller
// builds the search string (commenter, labels, repo filters).
func (c *Client) SearchVotes(ctx context.Context, searchQuery string) ([]ItemWithComments, error) {
	query := `
		query($searchQuery: String!, $first: Int!) {
			issuesAndPRs: search(query: $searchQuery, type: ISSUE, first: $first) {
				nodes {
					... on Issue { ` + itemFields + ` }
					... on PullRequest { ` + itemFields + ` }
				}
			}
			discussions: search(query: $searchQuery, type: DISCUSSION, first: $first) {
				nodes {
					... on Discussion { ` + itemFields + ` }
				}
			}
		}
	`

	resp, err := c.doQuery(ctx, query, map[string]interface{}{
		"searchQuery": searchQuery,
		"first":       100,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		IssuesAndPRs struct {
			Nodes []wireItem `json:"nodes"`
		} `json:"issuesAndPRs"`
		Discussions struct {
			Nodes []wireItem `json:"nodes"`
		} `json:"discussions"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search result: %w", err)
	}

	nodes := append(result.IssuesAndPRs.Nodes, result.Discussions.Nodes...)
	items := make([]ItemWithComments, 0, len(nodes))
	for _, node := range nodes {
		// Search can return node types outside the inline fragments;
		// those decode to zero values and carry no identity.
		if node.ID == "" {
			continue
		}
		item := ItemWithComments{Item: node.toItem()}
		for _, comment := range node.Comments.Nodes {
			item.Comments = append(item.Comments, comment.toComment())
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchComment retrieves a single comment by node id, along with its
// parent issue or discussion. A nil item with a nil error means the
// comment exists but its parent could not be resolved (orphaned).
func (c *Client) FetchComment(ctx context.Context, commentID string) (*Comment, *Item, error) {
	// Parent items don't need their comment lists here, so this
	// selection drops the comments connection.
	const parentFields = `
		id
		title
		number
		closed
		closedAt
		url
		labels(first: 50) {
			nodes {
				name
			}
		}
		repository {
			nameWithOwner
		}
	`
	query := `
		query($commentId: ID!) {
			node(id: $commentId) {
				... on IssueComment {
					id
					body
					createdAt
					updatedAt
					url
					author { login }
					issue { ` + parentFields + ` }
				}
				... on DiscussionComment {
					id
					body
					createdAt
					updatedAt
					url
					author { login }
					discussion { ` + parentFields + ` }
				}
			}
		}
	`

	resp, err := c.doQuery(ctx, query, map[string]interface{}{"commentId": commentID})
	if err != nil {
		return nil, nil, err
	}

	var result struct {
		Node struct {
			wireComment
			Issue      *wireItem `json:"issue"`
			Discussion *wireItem `json:"discussion"`
		} `json:"node"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse comment result: %w", err)
	}

	if result.Node.ID == "" {
		return nil, nil, fmt.Errorf("comment %s not found", commentID)
	}

	comment := result.Node.toComment()

	parent := result.Node.Issue
	if parent == nil {
		parent = result.Node.Discussion
	}
	if parent == nil {
		return &comment, nil, nil
	}
	item := parent.toItem()
	return &comment, &item, nil
}

// SearchIssues runs an issue search and returns matched items with
// their bodies (used by the onboarding-checklist report).
func (c *Client) SearchIssues(ctx context.Context, searchQuery string) ([]Item, error) {
	query := `
		query($searchQuery: String!, $first: Int!) {
			search(query: $searchQuery, type: ISSUE, first: $first) {
				nodes {
					... on Issue {
						id
						title
						number
						closed
						closedAt
						url
						body
						labels(first: 50) {
							nodes {
								name
							}
						}
						repository {
							nameWithOwner
						}
					}
				}
			}
		}
	`

	resp, err := c.doQuery(ctx, query, map[string]interface{}{
		"searchQuery": searchQuery,
		"first":       100,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Search struct {
			Nodes []wireItem `json:"nodes"`
		} `json:"search"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse issue search result: %w", err)
	}

	items := make([]Item, 0, len(result.Search.Nodes))
	for _, node := range result.Search.Nodes {
		if node.ID == "" {
			continue
		}
		items = append(items, node.toItem())
	}
	return items, nil
}

// FetchFileText fetches a file's text content via an object expression
// (e.g. "HEAD:templates/checklist.md").
func (c *Client) FetchFileText(ctx context.Context, owner, repo, expression string) (string, error) {
	query := `
		query($owner: String!, $name: String!, $expression: String!) {
			repository(owner: $owner, name: $name) {
				content: object(expression: $expression) {
					... on Blob {
						text
					}
				}
			}
		}
	`

	resp, err := c.doQuery(ctx, query, map[string]interface{}{
		"owner":      owner,
		"name":       repo,
		"expression": expression,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Repository struct {
			Content *struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("failed to parse file result: %w", err)
	}
	if result.Repository.Content == nil {
		return "", fmt.Errorf("file %s not found in %s/%s", expression, owner, repo)
	}
	return result.Repository.Content.Text, nil
}
