package ports

import (
	"context"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no identity has the name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create returns domain.ErrDuplicateIdentity on a unique-name violation.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
