// Package archive mirrors tallied votes into Postgres as an append-only
// snapshot history. The on-disk record tree stays the source of truth;
// the archive exists for querying how a vote moved over time.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skridlevsky/gavel/internal/tally"
)

// Archive wraps the database connection pool
type Archive struct {
	pool *pgxpool.Pool
}

// New creates the connection pool and applies pending migrations.
func New(ctx context.Context, databaseURL string) (*Archive, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Batch runs are short-lived; a small pool is enough.
	config.MaxConns = 5
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	slog.Info("Archive connection pool initialized", "max_conns", config.MaxConns)

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Archive{pool: pool}, nil
}

// Health checks the database connection
func (a *Archive) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("archive health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the connection pool
func (a *Archive) Close() {
	slog.Info("Closing archive connection pool")
	a.pool.Close()
}

// RecordSnapshot inserts the vote's current state. A snapshot whose
// payload hash matches an existing row for the same vote is skipped, so
// refreshes that changed nothing add no rows.
func (a *Archive) RecordSnapshot(ctx context.Context, vote *tally.VoteData) error {
	payload, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("failed to encode vote %s#%d: %w", vote.RepoName, vote.Number, err)
	}
	hash := sha256.Sum256(payload)

	tag, err := a.pool.Exec(ctx, `
		INSERT INTO vote_snapshots (
			repo_name, item_number, comment_id, vote_type,
			group_name, group_size, group_votes, progress, closed,
			content_hash, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (repo_name, item_number, content_hash) DO NOTHING
	`,
		vote.RepoName, vote.Number, vote.CommentID, vote.VoteType,
		vote.Group, vote.GroupSize, vote.GroupVotes, vote.Progress, vote.Closed,
		hex.EncodeToString(hash[:]), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to archive vote %s#%d: %w", vote.RepoName, vote.Number, err)
	}
	if tag.RowsAffected() == 0 {
		slog.Debug("Vote unchanged since last snapshot", "repo", vote.RepoName, "number", vote.Number)
	}
	return nil
}

// Snapshot is one archived vote state.
type Snapshot struct {
	RepoName   string          `json:"repoName"`
	Number     int             `json:"number"`
	VoteType   string          `json:"voteType"`
	Group      string          `json:"group"`
	GroupSize  int             `json:"groupSize"`
	GroupVotes int             `json:"groupVotes"`
	Progress   string          `json:"progress"`
	Closed     bool            `json:"closed"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// LatestSnapshots returns the newest archived state of every vote,
// newest first.
func (a *Archive) LatestSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT DISTINCT ON (repo_name, item_number)
			repo_name, item_number, vote_type, group_name,
			group_size, group_votes, progress, closed, payload, recorded_at
		FROM vote_snapshots
		ORDER BY repo_name, item_number, recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(
			&s.RepoName, &s.Number, &s.VoteType, &s.Group,
			&s.GroupSize, &s.GroupVotes, &s.Progress, &s.Closed,
			&s.Payload, &s.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// History returns every archived state of one vote, oldest first.
func (a *Archive) History(ctx context.Context, repoName string, number int) ([]Snapshot, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT repo_name, item_number, vote_type, group_name,
			group_size, group_votes, progress, closed, payload, recorded_at
		FROM vote_snapshots
		WHERE repo_name = $1 AND item_number = $2
		ORDER BY recorded_at ASC
	`, repoName, number)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote history: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(
			&s.RepoName, &s.Number, &s.VoteType, &s.Group,
			&s.GroupSize, &s.GroupVotes, &s.Progress, &s.Closed,
			&s.Payload, &s.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
