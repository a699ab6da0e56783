package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycoach-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Upsert creates the user on first sign-in and refreshes the profile fields afterwards.
func (r *UserRepo) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, external_id, name, email, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name,
			email = EXCLUDED.email,
			image = EXCLUDED.image,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		uuid.New(), user.ExternalID, user.Name, user.Email, user.Image,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, external_id, name, email, image, created_at, updated_at
		FROM users WHERE external_id = $1`

	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&user.ID, &user.ExternalID, &user.Name, &user.Email, &user.Image, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
