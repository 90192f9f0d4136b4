package errors

import (
	"fmt"
	"time"
)

/**
 * Custom error types for the plan review worker.
 *
 * ReviewerNotFound and UpstreamAI errors always cross the pipeline
 * boundary. Rasterization failures do so only in vision mode, where the
 * sheet image is mandatory; in text mode they degrade the submission
 * instead of failing it, as do OCR failures.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Submission errors surfaced to callers
	ErrorReviewerNotFound ErrorCode = "REVIEWER_NOT_FOUND"
	ErrorUpstreamAI       ErrorCode = "UPSTREAM_AI_ERROR"

	// Degradable pipeline errors, absorbed before the boundary
	ErrorRasterUnavailable ErrorCode = "RASTER_UNAVAILABLE"
	ErrorOCRBackendFailed  ErrorCode = "OCR_BACKEND_FAILED"

	// Infrastructure errors
	ErrorServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorStorageFailed      ErrorCode = "STORAGE_FAILED"
)

// ReviewError represents a structured worker error
type ReviewError struct {
	Code      ErrorCode
	Message   string
	RoomID    string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ReviewError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ReviewError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewReviewerNotFoundError(reviewerName string) *ReviewError {
	return &ReviewError{
		Code:      ErrorReviewerNotFound,
		Message:   fmt.Sprintf("Reviewer '%s' not found in configuration", reviewerName),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"reviewer_name": reviewerName,
		},
	}
}

func NewUpstreamAIError(reviewerName string, cause error) *ReviewError {
	return &ReviewError{
		Code:      ErrorUpstreamAI,
		Message:   fmt.Sprintf("Failed to get response from %s", reviewerName),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"reviewer_name": reviewerName,
		},
		Cause: cause,
	}
}

func NewRasterUnavailableError(cause error) *ReviewError {
	return &ReviewError{
		Code:      ErrorRasterUnavailable,
		Message:   "Document could not be rasterized",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewServiceUnavailableError(service string, cause error) *ReviewError {
	return &ReviewError{
		Code:      ErrorServiceUnavailable,
		Message:   fmt.Sprintf("Service unavailable: %s", service),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"service": service,
		},
		Cause: cause,
	}
}

func NewStorageFailedError(roomID string, cause error) *ReviewError {
	return &ReviewError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store review comments",
		RoomID:    roomID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for persistence
func (e *ReviewError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
