/**
 * PostgreSQL Client for the Plan Review Worker
 *
 * Handles persistence of review comments on review rooms.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/planroom/review-worker/internal/review"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// SaveComments overwrites the review comments stored on a room. Each
// submission replaces the previous comment set wholesale rather than
// appending, so re-running a review leaves exactly one authoritative set.
func (p *PostgresClient) SaveComments(ctx context.Context, roomID string, comments *review.CommentSet) error {
	if roomID == "" {
		return fmt.Errorf("room ID is required")
	}

	if comments == nil {
		comments = &review.CommentSet{Comments: []review.Comment{}}
	}

	commentsJSON, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	query := `
		UPDATE planroom.review_rooms
		SET review_comments = $2::jsonb,
		    last_message_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1::uuid
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(ctx, query, roomID, commentsJSON).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("review room not found: %s", roomID)
	}

	if err != nil {
		return fmt.Errorf("failed to save comments (room=%s, comments=%d): %w",
			roomID, len(comments.Comments), err)
	}

	return nil
}

// GetComments retrieves the current comment set for a room. A room with
// no stored review yet yields an empty set, not an error.
func (p *PostgresClient) GetComments(ctx context.Context, roomID string) (*review.CommentSet, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room ID is required")
	}

	query := `
		SELECT review_comments
		FROM planroom.review_rooms
		WHERE id = $1::uuid
	`

	var commentsJSON []byte
	err := p.db.QueryRowContext(ctx, query, roomID).Scan(&commentsJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review room not found: %s", roomID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}

	set := &review.CommentSet{Comments: []review.Comment{}}
	if len(commentsJSON) == 0 {
		return set, nil
	}

	if err := json.Unmarshal(commentsJSON, set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
	}
	if set.Comments == nil {
		set.Comments = []review.Comment{}
	}

	return set, nil
}

// RecordSubmission appends a row to the submission audit log.
func (p *PostgresClient) RecordSubmission(ctx context.Context, submissionID, roomID string, result *review.SubmissionResult) error {
	if submissionID == "" {
		return fmt.Errorf("submission ID is required")
	}

	if result == nil {
		return fmt.Errorf("result is required")
	}

	query := `
		INSERT INTO planroom.review_submissions (
			id, room_id, reviewer_name, status, external_ref,
			error_message, comment_count, created_at
		) VALUES (
			$1::uuid, $2::uuid, NULLIF($3, ''), $4, NULLIF($5, ''),
			NULLIF($6, ''), $7, NOW()
		)
	`

	_, err := p.db.ExecContext(
		ctx,
		query,
		submissionID,
		roomID,
		result.ReviewerName,
		string(result.Status),
		result.ExternalRef,
		result.Error,
		len(result.CommentsData.Comments),
	)

	if err != nil {
		return fmt.Errorf("failed to record submission (submission=%s, room=%s): %w",
			submissionID, roomID, err)
	}

	return nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
