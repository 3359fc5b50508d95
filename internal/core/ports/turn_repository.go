package ports

import (
	"context"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// TurnRepository is the append-only conversation log.
type TurnRepository interface {
	Append(ctx context.Context, turn *domain.Turn) (*domain.Turn, error)
	// ListByUser returns the user's turns oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Turn, error)
}
