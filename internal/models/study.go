package models

import (
	"time"

	"github.com/google/uuid"
)

// Task kinds the generator may produce.
const (
	TaskRead      = "read"
	TaskWatch     = "watch"
	TaskPractice  = "practice"
	TaskRecall    = "recall"
	TaskInterview = "interview"
)

// Revision kinds, scheduled at finalization.
const (
	RevisionDay2 = "day2"
	RevisionDay7 = "day7"
)

type Task struct {
	Type  string `json:"type"`
	Task  string `json:"task"`
	Time  int    `json:"time"`
	Order int    `json:"order"`
}

type StudySession struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"user_id"`
	Subject         string     `json:"subject"`
	Topic           string     `json:"topic"`
	Goal            string     `json:"goal"`
	TotalDuration   int        `json:"total_duration"`
	Tasks           []Task     `json:"tasks"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ConfidenceScore *int       `json:"confidence_score,omitempty"`
	QuizScore       *int       `json:"quiz_score,omitempty"`
}

// IsCompleted reports whether the session has been finalized.
func (s *StudySession) IsCompleted() bool {
	return s.CompletedAt != nil
}

type TaskCompletion struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   uuid.UUID `json:"session_id"`
	TaskIndex   int       `json:"task_index"`
	CompletedAt time.Time `json:"completed_at"`
	TimeSpent   *int      `json:"time_spent,omitempty"`
}

// ActiveSession is the active study plan joined with its completion events.
type ActiveSession struct {
	*StudySession
	Completions       []TaskCompletion `json:"completions"`
	CompletedTasks    []bool           `json:"completed_tasks"`
	AllTasksCompleted bool             `json:"all_tasks_completed"`
}

// NewActiveSession derives per-task completion flags. A task is done when any
// completion row carries its index; duplicates are harmless.
func NewActiveSession(s *StudySession, completions []TaskCompletion) *ActiveSession {
	if completions == nil {
		completions = []TaskCompletion{}
	}
	done := make([]bool, len(s.Tasks))
	for _, c := range completions {
		if c.TaskIndex >= 0 && c.TaskIndex < len(done) {
			done[c.TaskIndex] = true
		}
	}
	all := len(done) > 0
	for _, d := range done {
		if !d {
			all = false
			break
		}
	}
	return &ActiveSession{
		StudySession:      s,
		Completions:       completions,
		CompletedTasks:    done,
		AllTasksCompleted: all,
	}
}

// IsTaskCompleted reports whether at least one completion exists for taskIndex.
func (a *ActiveSession) IsTaskCompleted(taskIndex int) bool {
	if taskIndex < 0 || taskIndex >= len(a.CompletedTasks) {
		return false
	}
	return a.CompletedTasks[taskIndex]
}

type RevisionEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    uuid.UUID  `json:"session_id"`
	Subject      string     `json:"subject"`
	Topic        string     `json:"topic"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	Kind         string     `json:"type"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
	RemindedAt   *time.Time `json:"-"`
}

type UserStats struct {
	TotalSessions     int     `json:"total_sessions"`
	TotalMinutes      int     `json:"total_minutes"`
	AverageConfidence float64 `json:"average_confidence"`
	Streak            int     `json:"streak"`
}

type CreateSessionRequest struct {
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Goal          string `json:"goal"`
	TotalDuration int    `json:"total_duration"`
	Tasks         []Task `json:"tasks"`
}

type CompleteTaskRequest struct {
	TimeSpent *int `json:"time_spent"`
}

// CompleteSessionRequest carries either a client-computed quiz score or the raw
// answers to be scored against the cached quiz. Both absent means the quiz was skipped.
type CompleteSessionRequest struct {
	ConfidenceScore int   `json:"confidence_score"`
	QuizScore       *int  `json:"quiz_score"`
	QuizAnswers     []int `json:"quiz_answers"`
}

type CompleteSessionResponse struct {
	Success      bool   `json:"success"`
	QuizScore    *int   `json:"quiz_score,omitempty"`
	ScoreMessage string `json:"score_message,omitempty"`
}

// Profile is the dashboard aggregate: active plan, stats, pending revisions and history.
type Profile struct {
	ActiveSession *ActiveSession   `json:"active_session"`
	Stats         *UserStats       `json:"stats"`
	Revisions     []*RevisionEntry `json:"revisions"`
	History       []*StudySession  `json:"history"`
}
