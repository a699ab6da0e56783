package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type userStore interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// UserService mirrors identities from the external auth provider so reminder
// emails can be addressed.
type UserService struct {
	users userStore
	log   *logger.Logger
}

func NewUserService(users userStore, log *logger.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) Sync(ctx context.Context, owner string, req models.SyncUserRequest) (*models.User, error) {
	if owner == "" {
		return nil, errNotAuthenticated
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	fieldErrors := make(map[string]string)
	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if req.Email != "" && !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	user := &models.User{
		ExternalID: owner,
		Name:       req.Name,
		Email:      req.Email,
		Image:      req.Image,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	s.log.Debug("user synced", "user_id", owner)
	return user, nil
}

func (s *UserService) Me(ctx context.Context, owner string) (*models.User, error) {
	if owner == "" {
		return nil, errNotAuthenticated
	}
	user, err := s.users.GetByExternalID(ctx, owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
