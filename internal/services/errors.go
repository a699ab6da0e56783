package services

import "fmt"

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// TopicMismatchError is returned when the model reports that the topic belongs
// to a different subject than the one selected.
type TopicMismatchError struct {
	Message          string
	SuggestedSubject string
}

func (e *TopicMismatchError) Error() string { return e.Message }

// GenerationError means the model answered but the payload failed shape checks.
// Nothing derived from it is ever persisted.
type GenerationError struct{ Message string }

func (e *GenerationError) Error() string { return e.Message }

// UpstreamError wraps a failed call to the LLM provider.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("LLM provider error: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("LLM provider error: %d %s", e.Status, e.Body)
	default:
		return "LLM provider error: " + e.Body
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

var errNotAuthenticated = &UnauthorizedError{Message: "Not authenticated"}
