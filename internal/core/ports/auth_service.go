package ports

import (
	"context"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, username string) (*domain.User, error)
}

// TokenCodec mints and validates bearer tokens.
type TokenCodec interface {
	Mint(subject string) (string, error)
	Validate(token string) (string, error)
}
