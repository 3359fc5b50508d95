package ports

import (
	"context"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type ChatService interface {
	// Chat records the message for user (the shared anonymous identity when
	// user is nil) and returns the persisted AI reply.
	Chat(ctx context.Context, user *domain.User, message, modelKey string) (*domain.Turn, error)
	History(ctx context.Context, user *domain.User) ([]domain.Turn, error)
}

// ModelRouter maps a model key to a provider route.
type ModelRouter interface {
	Resolve(modelKey string) domain.Route
}

// CompletionClient sends one prompt to a provider. Failures are reported
// through the returned Completion, never as an error.
type CompletionClient interface {
	Complete(ctx context.Context, route domain.Route, text string) domain.Completion
}
