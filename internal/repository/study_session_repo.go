package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycoach-backend/internal/models"
)

// ErrAlreadyFinalized is returned by Finalize when the session was completed before.
var ErrAlreadyFinalized = errors.New("study session already finalized")

// createAttempts bounds retries when a concurrent create wins the one-active-session index.
const createAttempts = 3

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, subject, topic, goal, total_duration, tasks_json, is_active,
	created_at, completed_at, confidence_score, quiz_score`

// Create deactivates every active session of the owner and inserts s as the
// new active one in a single transaction.
func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	tasksJSON, err := json.Marshal(s.Tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	return retryOnUniqueViolation(createAttempts, func() error {
		return r.createOnce(ctx, s, tasksJSON)
	})
}

// retryOnUniqueViolation runs fn until it succeeds, fails with any other
// error, or has been tried attempts times.
func retryOnUniqueViolation(attempts int, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || attempt >= attempts {
			return err
		}
	}
}

func (r *StudySessionRepo) createOnce(ctx context.Context, s *models.StudySession, tasksJSON []byte) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"UPDATE study_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active",
		s.UserID,
	); err != nil {
		return fmt.Errorf("failed to deactivate sessions: %w", err)
	}

	s.ID = uuid.New()
	s.IsActive = true
	_, err = tx.Exec(ctx, `
		INSERT INTO study_sessions (id, user_id, subject, topic, goal, total_duration, tasks_json, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
	`, s.ID, s.UserID, s.Subject, s.Topic, s.Goal, s.TotalDuration, tasksJSON, s.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *StudySessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM study_sessions WHERE id = $1", id)
	return scanSession(row)
}

// GetActive returns the newest active session of the user or pgx.ErrNoRows.
func (r *StudySessionRepo) GetActive(ctx context.Context, userID string) (*models.StudySession, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+`
		FROM study_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`, userID)
	return scanSession(row)
}

func (r *StudySessionRepo) ListCompleted(ctx context.Context, userID string) ([]*models.StudySession, error) {
	return r.list(ctx, "SELECT "+sessionColumns+`
		FROM study_sessions
		WHERE user_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC`, userID)
}

func (r *StudySessionRepo) ListRecent(ctx context.Context, userID string, limit int) ([]*models.StudySession, error) {
	return r.list(ctx, "SELECT "+sessionColumns+`
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
}

// ListMissingRevisions returns finalized sessions with fewer than two revision entries.
func (r *StudySessionRepo) ListMissingRevisions(ctx context.Context, limit int) ([]*models.StudySession, error) {
	return r.list(ctx, "SELECT "+sessionColumns+`
		FROM study_sessions s
		WHERE s.completed_at IS NOT NULL
		  AND (SELECT COUNT(*) FROM revision_schedule rs WHERE rs.session_id = s.id) < 2
		ORDER BY s.completed_at
		LIMIT $1`, limit)
}

// Finalize marks the session complete and inserts its revision entries atomically.
// The patch only applies to a session that has not been completed yet.
func (r *StudySessionRepo) Finalize(ctx context.Context, sessionID uuid.UUID, completedAt time.Time, confidence int, quizScore *int, revisions []*models.RevisionEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE study_sessions
		SET is_active = FALSE,
			completed_at = $2,
			confidence_score = $3,
			quiz_score = $4
		WHERE id = $1
		  AND completed_at IS NULL
	`, sessionID, completedAt, confidence, quizScore)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	if err := checkFinalized(tag); err != nil {
		return err
	}

	for _, rev := range revisions {
		if _, err := insertRevision(ctx, tx, rev, false); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *StudySessionRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.StudySession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*models.StudySession, error) {
	s := &models.StudySession{}
	var tasksJSON []byte
	err := row.Scan(
		&s.ID, &s.UserID, &s.Subject, &s.Topic, &s.Goal, &s.TotalDuration, &tasksJSON, &s.IsActive,
		&s.CreatedAt, &s.CompletedAt, &s.ConfidenceScore, &s.QuizScore,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tasksJSON, &s.Tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks of session %s: %w", s.ID, err)
	}
	return s, nil
}

// checkFinalized reports ErrAlreadyFinalized when the guarded update matched no row.
func checkFinalized(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
