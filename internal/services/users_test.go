package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
)

type memUsers struct {
	byExternal map[string]*models.User
}

func (m *memUsers) Upsert(_ context.Context, user *models.User) error {
	if m.byExternal == nil {
		m.byExternal = make(map[string]*models.User)
	}
	cp := *user
	m.byExternal[user.ExternalID] = &cp
	return nil
}

func (m *memUsers) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	u, ok := m.byExternal[externalID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func TestUserSync_NormalizesAndStores(t *testing.T) {
	store := &memUsers{}
	svc := NewUserService(store, logger.Nop())

	user, err := svc.Sync(context.Background(), "user_1", models.SyncUserRequest{Name: "  Ada ", Email: "Ada@Example.COM"})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if user.Name != "Ada" || user.Email != "ada@example.com" || user.ExternalID != "user_1" {
		t.Fatalf("unexpected user: %+v", user)
	}

	got, err := svc.Me(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("stored email = %q", got.Email)
	}
}

func TestUserSync_Validation(t *testing.T) {
	svc := NewUserService(&memUsers{}, logger.Nop())

	tests := []struct {
		name string
		req  models.SyncUserRequest
		want string
	}{
		{"missing name", models.SyncUserRequest{Email: "a@b.io"}, "name"},
		{"bad email", models.SyncUserRequest{Name: "Ada", Email: "not-an-email"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sync(context.Background(), "user_1", tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Fields[tt.want] == "" {
				t.Fatalf("expected validation error on %s, got %v", tt.want, err)
			}
		})
	}
}

func TestUserMe_Errors(t *testing.T) {
	svc := NewUserService(&memUsers{}, logger.Nop())

	if _, err := svc.Me(context.Background(), ""); !isUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Me(context.Background(), "ghost"); !isNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
