package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local copy of an identity owned by the external auth provider.
type User struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      *string   `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SyncUserRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}
