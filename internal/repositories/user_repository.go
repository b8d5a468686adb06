package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByLogin resolves a user by username or email, both case-normalized.
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}
