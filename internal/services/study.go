package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
	"studycoach-backend/internal/repository"
)

const (
	revisionDay2Offset = 48 * time.Hour
	revisionDay7Offset = 7 * 24 * time.Hour

	minConfidence = 1
	maxConfidence = 5
	maxQuizScore  = 5
)

type sessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	GetActive(ctx context.Context, userID string) (*models.StudySession, error)
	ListMissingRevisions(ctx context.Context, limit int) ([]*models.StudySession, error)
	Finalize(ctx context.Context, sessionID uuid.UUID, completedAt time.Time, confidence int, quizScore *int, revisions []*models.RevisionEntry) error
}

type completionStore interface {
	Create(ctx context.Context, c *models.TaskCompletion) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.TaskCompletion, error)
}

type revisionStore interface {
	InsertMissing(ctx context.Context, revisions []*models.RevisionEntry) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RevisionEntry, error)
	ListPending(ctx context.Context, userID string) ([]*models.RevisionEntry, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, userID string) error
}

// EventPublisher fans mutation events out to the owner's live connections.
type EventPublisher interface {
	Publish(ctx context.Context, owner string, msg models.WSMessage)
}

// QuizCache keeps the last generated quiz of a session. Get returns nil, nil on a miss.
type QuizCache interface {
	Put(ctx context.Context, sessionID uuid.UUID, quiz *models.Quiz) error
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Quiz, error)
}

// StudyService owns the session lifecycle: creation, task completion,
// finalization and the spaced-repetition schedule.
type StudyService struct {
	sessions    sessionStore
	completions completionStore
	revisions   revisionStore
	events      EventPublisher
	quizzes     QuizCache
	log         *logger.Logger
	now         func() time.Time
}

func NewStudyService(sessions sessionStore, completions completionStore, revisions revisionStore, events EventPublisher, quizzes QuizCache, log *logger.Logger) *StudyService {
	if log == nil {
		log = logger.Nop()
	}
	return &StudyService{
		sessions:    sessions,
		completions: completions,
		revisions:   revisions,
		events:      events,
		quizzes:     quizzes,
		log:         log,
		now:         time.Now,
	}
}

// CreateSession stores a new active session for owner, deactivating any previous one.
func (s *StudyService) CreateSession(ctx context.Context, owner string, req models.CreateSessionRequest) (uuid.UUID, error) {
	if owner == "" {
		return uuid.Nil, errNotAuthenticated
	}
	if len(req.Tasks) == 0 {
		return uuid.Nil, &ValidationError{Fields: map[string]string{"tasks": "At least one task is required"}}
	}

	session := &models.StudySession{
		UserID:        owner,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Goal:          req.Goal,
		TotalDuration: req.TotalDuration,
		Tasks:         normalizeTaskOrder(req.Tasks),
		CreatedAt:     s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info("study session created", "user_id", owner, "session_id", session.ID, "tasks", len(session.Tasks))
	s.publish(ctx, owner, models.EventSessionCreated, models.SessionEvent{SessionID: session.ID})
	return session.ID, nil
}

// GetActiveSession returns nil without error when owner is empty or has no active session.
func (s *StudyService) GetActiveSession(ctx context.Context, owner string) (*models.ActiveSession, error) {
	if owner == "" {
		return nil, nil
	}

	session, err := s.sessions.GetActive(ctx, owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active session: %w", err)
	}

	completions, err := s.completions.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task completions: %w", err)
	}
	return models.NewActiveSession(session, completions), nil
}

// CompleteTask appends a completion event. Repeating it for the same task is allowed.
func (s *StudyService) CompleteTask(ctx context.Context, owner string, sessionID uuid.UUID, taskIndex int, timeSpent *int) error {
	if owner == "" {
		return errNotAuthenticated
	}

	session, err := s.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return err
	}

	fields := make(map[string]string)
	if taskIndex < 0 || taskIndex >= len(session.Tasks) {
		fields["task_index"] = fmt.Sprintf("Task index must be between 0 and %d", len(session.Tasks)-1)
	}
	if timeSpent != nil && *timeSpent < 0 {
		fields["time_spent"] = "Time spent cannot be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	completion := &models.TaskCompletion{
		UserID:      owner,
		SessionID:   sessionID,
		TaskIndex:   taskIndex,
		CompletedAt: s.now(),
		TimeSpent:   timeSpent,
	}
	if err := s.completions.Create(ctx, completion); err != nil {
		return fmt.Errorf("failed to record task completion: %w", err)
	}

	s.publish(ctx, owner, models.EventTaskCompleted, models.SessionEvent{SessionID: sessionID, TaskIndex: &taskIndex})
	return nil
}

// CompleteSession finalizes the session and schedules the day2 and day7 revisions.
func (s *StudyService) CompleteSession(ctx context.Context, owner string, sessionID uuid.UUID, confidence int, quizScore *int) error {
	if owner == "" {
		return errNotAuthenticated
	}

	fields := make(map[string]string)
	if confidence < minConfidence || confidence > maxConfidence {
		fields["confidence_score"] = fmt.Sprintf("Confidence must be between %d and %d", minConfidence, maxConfidence)
	}
	if quizScore != nil && (*quizScore < 0 || *quizScore > maxQuizScore) {
		fields["quiz_score"] = fmt.Sprintf("Quiz score must be between 0 and %d", maxQuizScore)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	session, err := s.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	if session.IsCompleted() {
		return &ConflictError{Message: "Session already completed"}
	}

	completedAt := s.now()
	revisions := scheduleRevisions(session, completedAt)
	err = s.sessions.Finalize(ctx, sessionID, completedAt, confidence, quizScore, revisions)
	if errors.Is(err, repository.ErrAlreadyFinalized) {
		return &ConflictError{Message: "Session already completed"}
	}
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	s.log.Info("study session completed", "user_id", owner, "session_id", sessionID, "confidence", confidence)
	s.publish(ctx, owner, models.EventSessionCompleted, models.SessionEvent{SessionID: sessionID})
	return nil
}

// CompleteSessionWithAnswers scores answers against the quiz cached for the
// session and finalizes it with that score.
func (s *StudyService) CompleteSessionWithAnswers(ctx context.Context, owner string, sessionID uuid.UUID, confidence int, answers []int) (int, error) {
	if owner == "" {
		return 0, errNotAuthenticated
	}
	if s.quizzes == nil {
		return 0, &NotFoundError{Message: "No quiz available for this session"}
	}

	quiz, err := s.quizzes.Get(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load quiz: %w", err)
	}
	if quiz == nil {
		return 0, &NotFoundError{Message: "No quiz available for this session"}
	}

	score, err := ScoreQuiz(quiz, answers)
	if err != nil {
		return 0, err
	}
	if err := s.CompleteSession(ctx, owner, sessionID, confidence, &score); err != nil {
		return 0, err
	}
	return score, nil
}

// GetRevisionSchedule lists pending revisions, earliest first.
func (s *StudyService) GetRevisionSchedule(ctx context.Context, owner string) ([]*models.RevisionEntry, error) {
	if owner == "" {
		return []*models.RevisionEntry{}, nil
	}
	revisions, err := s.revisions.ListPending(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load revisions: %w", err)
	}
	return revisions, nil
}

func (s *StudyService) CompleteRevision(ctx context.Context, owner string, revisionID uuid.UUID) error {
	if owner == "" {
		return errNotAuthenticated
	}

	rev, err := s.revisions.GetByID(ctx, revisionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Message: "Revision not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to load revision: %w", err)
	}
	if rev.UserID != owner {
		return &ForbiddenError{Message: "Revision belongs to another user"}
	}
	if rev.Completed {
		return nil
	}

	if err := s.revisions.MarkCompleted(ctx, revisionID, owner); err != nil {
		return fmt.Errorf("failed to complete revision: %w", err)
	}

	s.publish(ctx, owner, models.EventRevisionCompleted, models.RevisionEvent{RevisionID: revisionID})
	return nil
}

// ReconcileRevisions inserts the revision entries missing for finalized sessions
// and returns how many were written. Running it repeatedly is safe.
func (s *StudyService) ReconcileRevisions(ctx context.Context, limit int) (int, error) {
	sessions, err := s.sessions.ListMissingRevisions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions missing revisions: %w", err)
	}

	total := 0
	for _, session := range sessions {
		if session.CompletedAt == nil {
			continue
		}
		n, err := s.revisions.InsertMissing(ctx, scheduleRevisions(session, *session.CompletedAt))
		if err != nil {
			return total, fmt.Errorf("failed to repair revisions of session %s: %w", session.ID, err)
		}
		total += n
	}

	if total > 0 {
		s.log.Warn("repaired missing revision entries", "inserted", total, "sessions", len(sessions))
	}
	return total, nil
}

func (s *StudyService) ownedSession(ctx context.Context, owner string, sessionID uuid.UUID) (*models.StudySession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != owner {
		return nil, &ForbiddenError{Message: "Session belongs to another user"}
	}
	return session, nil
}

func (s *StudyService) publish(ctx context.Context, owner, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, owner, models.WSMessage{Type: eventType, Payload: payload})
}

func scheduleRevisions(session *models.StudySession, completedAt time.Time) []*models.RevisionEntry {
	entry := func(kind string, offset time.Duration) *models.RevisionEntry {
		return &models.RevisionEntry{
			UserID:       session.UserID,
			SessionID:    session.ID,
			Subject:      session.Subject,
			Topic:        session.Topic,
			ScheduledFor: completedAt.Add(offset),
			Kind:         kind,
			CreatedAt:    completedAt,
		}
	}
	return []*models.RevisionEntry{
		entry(models.RevisionDay2, revisionDay2Offset),
		entry(models.RevisionDay7, revisionDay7Offset),
	}
}

// normalizeTaskOrder assigns positional order 1..n when none was provided.
func normalizeTaskOrder(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	for _, t := range out {
		if t.Order != 0 {
			return out
		}
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// CacheQuiz remembers quiz for the owner's session so answers can be scored later.
func (s *StudyService) CacheQuiz(ctx context.Context, owner string, sessionID uuid.UUID, quiz *models.Quiz) error {
	if owner == "" {
		return errNotAuthenticated
	}
	if s.quizzes == nil {
		return nil
	}
	if _, err := s.ownedSession(ctx, owner, sessionID); err != nil {
		return err
	}
	if err := s.quizzes.Put(ctx, sessionID, quiz); err != nil {
		return fmt.Errorf("failed to cache quiz: %w", err)
	}
	return nil
}
