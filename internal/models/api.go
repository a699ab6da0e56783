package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventSessionCreated    = "session_created"
	EventTaskCompleted     = "task_completed"
	EventSessionCompleted  = "session_completed"
	EventRevisionCompleted = "revision_completed"
)

type SessionEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	TaskIndex *int      `json:"task_index,omitempty"`
}

type RevisionEvent struct {
	RevisionID uuid.UUID `json:"revision_id"`
}

// ReminderJob is queued by the reminder scheduler and consumed by the worker pool.
type ReminderJob struct {
	RevisionID uuid.UUID `json:"revision_id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	Topic      string    `json:"topic"`
	Kind       string    `json:"kind"`
}

// API Error response
type APIError struct {
	Code             string            `json:"code"`
	Message          string            `json:"message"`
	Fields           map[string]string `json:"fields,omitempty"`
	SuggestedSubject string            `json:"suggested_subject,omitempty"`
	RequestID        string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
