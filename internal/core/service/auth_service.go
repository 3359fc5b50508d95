package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/metrics"
)

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 12

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// AuthService implements registration and login.
type AuthService struct {
	repo  ports.UserRepository
	codec ports.TokenCodec
	cost  int
	log   zerolog.Logger

	// dummyHash is compared against when the username is unknown.
	dummyHash []byte
}

func NewAuthService(repo ports.UserRepository, codec ports.TokenCodec, bcryptCost int, log zerolog.Logger) (*AuthService, error) {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth service: bcrypt cost %d out of range", bcryptCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equaliser"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &AuthService{repo: repo, codec: codec, cost: bcryptCost, log: log, dummyHash: dummy}, nil
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRegistration)
	}
	if len(password) > MaxPasswordBytes {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidRegistration, MaxPasswordBytes)
	}
	if strings.EqualFold(username, domain.AnonymousUsername) {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		return nil, domain.ErrDuplicateIdentity
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		return nil, domain.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
			return nil, domain.ErrDuplicateIdentity
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.Info().Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login returns a bearer token for valid credentials. Unknown users, the
// anonymous identity and wrong passwords all yield ErrAuthenticationFailed.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", s.loginFailed()
	case err != nil:
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return "", fmt.Errorf("login: %w", err)
	}

	if user.IsAnonymous() {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", s.loginFailed()
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", s.loginFailed()
	}

	token, err := s.codec.Mint(user.Username)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return "", fmt.Errorf("login: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return token, nil
}

func (s *AuthService) loginFailed() error {
	metrics.AuthAttemptsTotal.WithLabelValues("login", "failed").Inc()
	return domain.ErrAuthenticationFailed
}

func (s *AuthService) Me(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}
