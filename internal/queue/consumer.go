/**
 * Queue Consumer for the Plan Review Worker
 *
 * Consumes plan review submissions from the Redis queue shared with the
 * planroom API. Uses Asynq for queue management.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planroom/review-worker/internal/pipeline"
	"github.com/planroom/review-worker/internal/review"
)

// TaskTypeSubmitReview is the task type the planroom API enqueues when a
// user requests a plan review.
const TaskTypeSubmitReview = "review:submit"

// SubmitTask represents the payload of a review:submit task
type SubmitTask struct {
	RoomID       string `json:"roomId"`
	Title        string `json:"title"`
	ReviewerName string `json:"reviewerName,omitempty"`
	VisionMode   bool   `json:"visionMode,omitempty"`
	PDFBuffer    []byte `json:"pdfBuffer"`
}

// Submitter runs one review submission end to end
type Submitter interface {
	Submit(ctx context.Context, req pipeline.Request) *review.SubmissionResult
}

// Persister records submission outcomes
type Persister interface {
	PersistResult(ctx context.Context, roomID string, result *review.SubmissionResult) (string, error)
}

// Consumer handles review submission consumption from the Redis queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	submitter Submitter
	persister Persister
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Submitter   Submitter
	Persister   Persister
	MaxPDFSize  int64
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Submitter == nil {
		return nil, fmt.Errorf("Submitter is required")
	}

	if cfg.Persister == nil {
		return nil, fmt.Errorf("Persister is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Client side is used by EnqueueSubmission, mostly from tests and
	// local tooling; the API enqueues through its own client.
	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // Priority 10 for main queue
				"default":     1,  // Priority 1 for fallback
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       mux,
		submitter: cfg.Submitter,
		persister: cfg.Persister,
		config:    cfg,
	}

	mux.HandleFunc(TaskTypeSubmitReview, consumer.handleSubmitReview)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	log.Printf("Stopping queue consumer...")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	log.Printf("Queue consumer stopped")
	return nil
}

// EnqueueSubmission enqueues a review:submit task
func (c *Consumer) EnqueueSubmission(ctx context.Context, task *SubmitTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeSubmitReview, payload),
		asynq.Queue(c.config.QueueName))
	if err != nil {
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}

	return nil
}

// handleSubmitReview processes one review submission task. A failed
// review (unknown reviewer, upstream error) is a consumed task with an
// error result, not a retry: retrying would re-bill the same upstream
// call for a deterministic failure. Only persistence errors requeue.
func (c *Consumer) handleSubmitReview(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var data SubmitTask
	if err := json.Unmarshal(task.Payload(), &data); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	if data.RoomID == "" {
		return fmt.Errorf("roomId is required: %w", asynq.SkipRetry)
	}

	if len(data.PDFBuffer) == 0 {
		return fmt.Errorf("pdfBuffer is required: %w", asynq.SkipRetry)
	}

	if c.config.MaxPDFSize > 0 && int64(len(data.PDFBuffer)) > c.config.MaxPDFSize {
		return fmt.Errorf("pdf exceeds size limit (%d > %d bytes): %w",
			len(data.PDFBuffer), c.config.MaxPDFSize, asynq.SkipRetry)
	}

	log.Printf("[Room %s] Submitting plan for review: title=%q, reviewer=%q, vision=%t, size=%d bytes",
		data.RoomID, data.Title, data.ReviewerName, data.VisionMode, len(data.PDFBuffer))

	result := c.submitter.Submit(ctx, pipeline.Request{
		RoomID:       data.RoomID,
		Title:        data.Title,
		PDF:          data.PDFBuffer,
		ReviewerName: data.ReviewerName,
		VisionMode:   data.VisionMode,
	})

	duration := time.Since(startTime)

	submissionID, err := c.persister.PersistResult(ctx, data.RoomID, result)
	if err != nil {
		log.Printf("[Room %s] Failed to persist result after %v: %v", data.RoomID, duration, err)
		return fmt.Errorf("failed to persist result: %w", err)
	}

	if result.Status == review.StatusError {
		log.Printf("[Room %s] Review failed after %v: submission=%s, error=%s",
			data.RoomID, duration, submissionID, result.Error)
		return nil
	}

	log.Printf("[Room %s] Review completed in %v: submission=%s, reviewer=%s, comments=%d",
		data.RoomID, duration, submissionID, result.ReviewerName, len(result.CommentsData.Comments))

	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
