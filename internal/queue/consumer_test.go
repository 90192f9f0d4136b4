package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/planroom/review-worker/internal/pipeline"
	"github.com/planroom/review-worker/internal/review"
)

type fakeSubmitter struct {
	result   *review.SubmissionResult
	requests []pipeline.Request
}

func (f *fakeSubmitter) Submit(_ context.Context, req pipeline.Request) *review.SubmissionResult {
	f.requests = append(f.requests, req)
	return f.result
}

type fakePersister struct {
	err     error
	roomIDs []string
	results []*review.SubmissionResult
}

func (f *fakePersister) PersistResult(_ context.Context, roomID string, result *review.SubmissionResult) (string, error) {
	f.roomIDs = append(f.roomIDs, roomID)
	f.results = append(f.results, result)
	if f.err != nil {
		return "", f.err
	}
	return "sub-1", nil
}

func newTestConsumer(s *fakeSubmitter, p *fakePersister, maxPDF int64) *Consumer {
	return &Consumer{
		submitter: s,
		persister: p,
		config:    &ConsumerConfig{QueueName: "planreview", Concurrency: 1, MaxPDFSize: maxPDF},
	}
}

func submitTaskPayload(t *testing.T, task *SubmitTask) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	return asynq.NewTask(TaskTypeSubmitReview, payload)
}

func TestHandleSubmitReviewSuccess(t *testing.T) {
	s := &fakeSubmitter{result: &review.SubmissionResult{
		Status:       review.StatusSuccess,
		ReviewerName: "Stormwater Reviewer",
	}}
	p := &fakePersister{}
	c := newTestConsumer(s, p, 0)

	task := submitTaskPayload(t, &SubmitTask{
		RoomID:       "room-1",
		Title:        "Oak Grove Phase 2",
		ReviewerName: "Stormwater Reviewer",
		PDFBuffer:    []byte("%PDF-fake"),
	})

	if err := c.handleSubmitReview(context.Background(), task); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	if len(s.requests) != 1 {
		t.Fatalf("submit calls = %d, want 1", len(s.requests))
	}
	if s.requests[0].RoomID != "room-1" || s.requests[0].ReviewerName != "Stormwater Reviewer" {
		t.Errorf("request not forwarded: %+v", s.requests[0])
	}
	if len(p.roomIDs) != 1 || p.roomIDs[0] != "room-1" {
		t.Errorf("persist rooms = %v", p.roomIDs)
	}
}

func TestHandleSubmitReviewErrorResultIsConsumed(t *testing.T) {
	// A review that failed upstream must not requeue: the error outcome
	// is itself the persisted result.
	s := &fakeSubmitter{result: &review.SubmissionResult{
		Status: review.StatusError,
		Error:  "Reviewer 'Unknown Reviewer' not found in configuration",
	}}
	p := &fakePersister{}
	c := newTestConsumer(s, p, 0)

	task := submitTaskPayload(t, &SubmitTask{
		RoomID:    "room-2",
		PDFBuffer: []byte("%PDF-fake"),
	})

	if err := c.handleSubmitReview(context.Background(), task); err != nil {
		t.Fatalf("error result must consume the task, got %v", err)
	}
	if len(p.results) != 1 || p.results[0].Status != review.StatusError {
		t.Error("error result must still be persisted")
	}
}

func TestHandleSubmitReviewPersistFailureRetries(t *testing.T) {
	s := &fakeSubmitter{result: &review.SubmissionResult{Status: review.StatusSuccess}}
	p := &fakePersister{err: errors.New("connection refused")}
	c := newTestConsumer(s, p, 0)

	task := submitTaskPayload(t, &SubmitTask{
		RoomID:    "room-3",
		PDFBuffer: []byte("%PDF-fake"),
	})

	err := c.handleSubmitReview(context.Background(), task)
	if err == nil {
		t.Fatal("persistence failure must requeue the task")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Error("persistence failure must be retryable")
	}
}

func TestHandleSubmitReviewValidation(t *testing.T) {
	tests := []struct {
		name string
		task *SubmitTask
	}{
		{"missing room", &SubmitTask{PDFBuffer: []byte("%PDF-fake")}},
		{"missing pdf", &SubmitTask{RoomID: "room-4"}},
		{"oversized pdf", &SubmitTask{RoomID: "room-4", PDFBuffer: make([]byte, 2048)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSubmitter{}
			c := newTestConsumer(s, &fakePersister{}, 1024)

			err := c.handleSubmitReview(context.Background(), submitTaskPayload(t, tt.task))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("validation errors must not retry, got %v", err)
			}
			if len(s.requests) != 0 {
				t.Error("invalid tasks must not reach the pipeline")
			}
		})
	}
}
