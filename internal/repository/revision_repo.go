package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycoach-backend/internal/models"
)

type RevisionRepo struct {
	pool *pgxpool.Pool
}

// DueRevision is a pending revision joined with the contact details of its owner.
type DueRevision struct {
	models.RevisionEntry
	Email string
	Name  string
}

func NewRevisionRepo(pool *pgxpool.Pool) *RevisionRepo {
	return &RevisionRepo{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const revisionColumns = `id, user_id, session_id, subject, topic, scheduled_for, kind, completed, created_at, reminded_at`

func insertRevision(ctx context.Context, db execer, rev *models.RevisionEntry, skipExisting bool) (bool, error) {
	rev.ID = uuid.New()
	query := `
		INSERT INTO revision_schedule (id, user_id, session_id, subject, topic, scheduled_for, kind, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if skipExisting {
		query += " ON CONFLICT (session_id, kind) DO NOTHING"
	}
	tag, err := db.Exec(ctx, query,
		rev.ID, rev.UserID, rev.SessionID, rev.Subject, rev.Topic, rev.ScheduledFor, rev.Kind, rev.Completed, rev.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert %s revision: %w", rev.Kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertMissing inserts entries whose (session, kind) pair does not exist yet
// and returns how many were written.
func (r *RevisionRepo) InsertMissing(ctx context.Context, revisions []*models.RevisionEntry) (int, error) {
	inserted := 0
	for _, rev := range revisions {
		ok, err := insertRevision(ctx, r.pool, rev, true)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (r *RevisionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RevisionEntry, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+revisionColumns+" FROM revision_schedule WHERE id = $1", id)
	return scanRevision(row)
}

// ListPending returns incomplete entries ordered by scheduled time, earliest first.
func (r *RevisionRepo) ListPending(ctx context.Context, userID string) ([]*models.RevisionEntry, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+revisionColumns+`
		FROM revision_schedule
		WHERE user_id = $1 AND completed = FALSE
		ORDER BY scheduled_for ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revisions := []*models.RevisionEntry{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func (r *RevisionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, userID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE revision_schedule SET completed = TRUE WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	return err
}

// ListDueForReminder returns due, incomplete, not yet reminded entries of users
// with a known email address.
func (r *RevisionRepo) ListDueForReminder(ctx context.Context, now time.Time, limit int) ([]DueRevision, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rs.id, rs.user_id, rs.session_id, rs.subject, rs.topic, rs.scheduled_for, rs.kind,
			rs.completed, rs.created_at, rs.reminded_at, u.email, u.name
		FROM revision_schedule rs
		JOIN users u ON u.external_id = rs.user_id
		WHERE rs.completed = FALSE
		  AND rs.reminded_at IS NULL
		  AND rs.scheduled_for <= $1
		  AND u.email <> ''
		ORDER BY rs.scheduled_for
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []DueRevision
	for rows.Next() {
		var d DueRevision
		err := rows.Scan(&d.ID, &d.UserID, &d.SessionID, &d.Subject, &d.Topic, &d.ScheduledFor, &d.Kind,
			&d.Completed, &d.CreatedAt, &d.RemindedAt, &d.Email, &d.Name)
		if err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

func (r *RevisionRepo) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE revision_schedule SET reminded_at = $2 WHERE id = $1", id, at)
	return err
}

func scanRevision(row pgx.Row) (*models.RevisionEntry, error) {
	rev := &models.RevisionEntry{}
	err := row.Scan(&rev.ID, &rev.UserID, &rev.SessionID, &rev.Subject, &rev.Topic, &rev.ScheduledFor,
		&rev.Kind, &rev.Completed, &rev.CreatedAt, &rev.RemindedAt)
	if err != nil {
		return nil, err
	}
	return rev, nil
}
