package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycoach-backend/internal/models"
)

type TaskCompletionRepo struct {
	pool *pgxpool.Pool
}

func NewTaskCompletionRepo(pool *pgxpool.Pool) *TaskCompletionRepo {
	return &TaskCompletionRepo{pool: pool}
}

// Create appends a completion event. Duplicates per (session, task) are allowed.
func (r *TaskCompletionRepo) Create(ctx context.Context, c *models.TaskCompletion) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task_completions (id, user_id, session_id, task_index, completed_at, time_spent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.UserID, c.SessionID, c.TaskIndex, c.CompletedAt, c.TimeSpent)
	return err
}

func (r *TaskCompletionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.TaskCompletion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, session_id, task_index, completed_at, time_spent
		FROM task_completions
		WHERE session_id = $1
		ORDER BY completed_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.TaskCompletion{}
	for rows.Next() {
		var c models.TaskCompletion
		if err := rows.Scan(&c.ID, &c.UserID, &c.SessionID, &c.TaskIndex, &c.CompletedAt, &c.TimeSpent); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
