/**
 * Storage Manager for the Plan Review Worker
 *
 * Coordinates persistence across PostgreSQL (authoritative comments and
 * submission audit rows) and Redis (raw response cache).
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planroom/review-worker/internal/logging"
	"github.com/planroom/review-worker/internal/review"
)

// Manager coordinates PostgreSQL and Redis operations
type Manager struct {
	postgres *PostgresClient
	redis    *RedisClient
	logger   *logging.Logger
}

// NewManager creates a new storage manager
func NewManager(databaseURL string, redisURL string, rawResponseTTL time.Duration) (*Manager, error) {
	postgres, err := NewPostgresClient(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	redisClient, err := NewRedisClient(redisURL, rawResponseTTL)
	if err != nil {
		postgres.Close() // Cleanup on failure
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}

	return &Manager{
		postgres: postgres,
		redis:    redisClient,
		logger:   logging.NewLogger("Storage"),
	}, nil
}

// PersistResult records one submission outcome. Successful results
// overwrite the room's comment set; every result, failed ones included,
// gets an audit row and a cached copy of the raw upstream text. Returns
// the generated submission ID.
func (m *Manager) PersistResult(ctx context.Context, roomID string, result *review.SubmissionResult) (string, error) {
	if roomID == "" {
		return "", fmt.Errorf("room ID is required")
	}

	if result == nil {
		return "", fmt.Errorf("result is required")
	}

	submissionID := uuid.New().String()

	if result.Status == review.StatusSuccess {
		if err := m.postgres.SaveComments(ctx, roomID, &result.CommentsData); err != nil {
			return "", fmt.Errorf("failed to persist comments: %w", err)
		}
	}

	if err := m.postgres.RecordSubmission(ctx, submissionID, roomID, result); err != nil {
		return "", fmt.Errorf("failed to record submission: %w", err)
	}

	// Raw response cache is best effort: a Redis outage must not fail
	// an otherwise persisted submission.
	if result.RawResponse != "" {
		if err := m.redis.CacheRawResponse(ctx, submissionID, result.RawResponse); err != nil {
			m.logger.Warn("Failed to cache raw response",
				"submission", submissionID, "room", roomID, "error", err)
		}
	}

	return submissionID, nil
}

// GetComments retrieves the current comment set for a room
func (m *Manager) GetComments(ctx context.Context, roomID string) (*review.CommentSet, error) {
	return m.postgres.GetComments(ctx, roomID)
}

// GetRawResponse retrieves a cached raw reviewer response
func (m *Manager) GetRawResponse(ctx context.Context, submissionID string) (string, error) {
	return m.redis.GetRawResponse(ctx, submissionID)
}

// Ping checks connectivity to both backing stores
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := m.redis.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close closes both storage clients
func (m *Manager) Close() {
	if m.postgres != nil {
		m.postgres.Close()
	}
	if m.redis != nil {
		m.redis.Close()
	}
}
